/*
 * @module service/metrics/expression
 * @description 一致性规则用的布尔表达式：词法分析、递归下降解析为小型 AST，逐行求值
 * @architecture 解释器模式 - 受限 AST 替代通用表达式求值器，避免任意代码执行
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 表达式字符串 -> 词法分析 -> AST -> 按行求值
 * @rules
 *   - 仅支持比较、and/or/not 与括号，标识符只能引用数据集列
 *   - 未知列在求值时返回明确错误
 *   - 参与比较的缺失值使比较结果为 false
 * @dependencies service/models, service/utils, strconv
 * @refs consistency.go
 */

package metrics

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"dataquality-service/service/models"
	"dataquality-service/service/utils"
)

// RowAccessor 按列名取某一行的值，present 为 false 表示该单元格缺失
type RowAccessor func(column string) (value interface{}, present bool, err error)

// Expression 可按行求值的布尔表达式
type Expression interface {
	Eval(row RowAccessor) (bool, error)
}

// ---- AST 节点 ----

type andExpr struct{ left, right Expression }
type orExpr struct{ left, right Expression }
type notExpr struct{ inner Expression }

func (e *andExpr) Eval(row RowAccessor) (bool, error) {
	l, err := e.left.Eval(row)
	if err != nil {
		return false, err
	}
	if !l {
		return false, nil
	}
	return e.right.Eval(row)
}

func (e *orExpr) Eval(row RowAccessor) (bool, error) {
	l, err := e.left.Eval(row)
	if err != nil {
		return false, err
	}
	if l {
		return true, nil
	}
	return e.right.Eval(row)
}

func (e *notExpr) Eval(row RowAccessor) (bool, error) {
	v, err := e.inner.Eval(row)
	return !v, err
}

// operand 比较的一侧：列引用或字面量
type operand struct {
	column  string
	literal interface{}
	isCol   bool
}

func (o operand) resolve(row RowAccessor) (interface{}, bool, error) {
	if !o.isCol {
		return o.literal, true, nil
	}
	return row(o.column)
}

// compareExpr 二元比较节点
type compareExpr struct {
	left  operand
	op    string
	right operand
}

func (e *compareExpr) Eval(row RowAccessor) (bool, error) {
	lv, lok, err := e.left.resolve(row)
	if err != nil {
		return false, err
	}
	rv, rok, err := e.right.resolve(row)
	if err != nil {
		return false, err
	}
	// 任一侧缺失时比较不成立
	if !lok || !rok {
		return false, nil
	}
	return CompareValues(lv, e.op, rv)
}

// boolColumn 裸布尔列引用，如表达式 "is_active"
type boolColumn struct{ column string }

func (e *boolColumn) Eval(row RowAccessor) (bool, error) {
	v, ok, err := row(e.column)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	b, err := utils.ToBool(v)
	if err != nil {
		return false, fmt.Errorf("列 '%s' 的值 %v 不是布尔值", e.column, v)
	}
	return b, nil
}

// boolLiteral 布尔字面量节点
type boolLiteral struct{ value bool }

func (e *boolLiteral) Eval(RowAccessor) (bool, error) {
	return e.value, nil
}

// ValidOperators 支持的比较操作符
var ValidOperators = []string{"<", "<=", "==", "!=", ">=", ">"}

// IsValidOperator 判断比较操作符是否合法
func IsValidOperator(op string) bool {
	for _, valid := range ValidOperators {
		if op == valid {
			return true
		}
	}
	return false
}

// CompareValues 按值的自然序比较：时间值按时间，数值按浮点，布尔仅支持相等性，其余按字典序
func CompareValues(left interface{}, op string, right interface{}) (bool, error) {
	if !IsValidOperator(op) {
		return false, fmt.Errorf("非法的比较操作符: %s", op)
	}

	// 时间比较优先：任一侧是时间值时，另一侧也按时间解析
	lt, lErr := asTime(left)
	rt, rErr := asTime(right)
	if lErr == nil && rErr == nil {
		return compareOrdered(float64(lt.UnixNano()), op, float64(rt.UnixNano())), nil
	}

	// 布尔值先于数值判断，避免被当作 0/1 参与大小比较
	if _, isBool := left.(bool); isBool {
		return compareBool(left, op, right)
	}
	if _, isBool := right.(bool); isBool {
		return compareBool(left, op, right)
	}

	lf, lfErr := utils.ToFloat64(left)
	rf, rfErr := utils.ToFloat64(right)
	if lfErr == nil && rfErr == nil {
		return compareOrdered(lf, op, rf), nil
	}

	ls := utils.ToString(left)
	rs := utils.ToString(right)
	switch op {
	case "<":
		return ls < rs, nil
	case "<=":
		return ls <= rs, nil
	case "==":
		return ls == rs, nil
	case "!=":
		return ls != rs, nil
	case ">=":
		return ls >= rs, nil
	default:
		return ls > rs, nil
	}
}

func compareBool(left interface{}, op string, right interface{}) (bool, error) {
	lb, lErr := utils.ToBool(left)
	rb, rErr := utils.ToBool(right)
	if lErr != nil || rErr != nil {
		return false, fmt.Errorf("无法将 %v 与 %v 作为布尔值比较", left, right)
	}
	switch op {
	case "==":
		return lb == rb, nil
	case "!=":
		return lb != rb, nil
	default:
		return false, fmt.Errorf("布尔值不支持操作符 %s", op)
	}
}

func compareOrdered(left float64, op string, right float64) bool {
	switch op {
	case "<":
		return left < right
	case "<=":
		return left <= right
	case "==":
		return left == right
	case "!=":
		return left != right
	case ">=":
		return left >= right
	default:
		return left > right
	}
}

// asTime 仅对时间值或明确的日期字符串成功
func asTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return utils.ToTime(t)
	}
	return time.Time{}, fmt.Errorf("不是时间值")
}

// ---- 词法分析 ----

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
	tokTrue
	tokFalse
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		c := runes[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("字符串字面量未闭合: %s", input[i:])
			}
			tokens = append(tokens, token{tokString, string(runes[i+1 : j])})
			i = j + 1
		case strings.ContainsRune("<>=!", c):
			j := i + 1
			if j < len(runes) && runes[j] == '=' {
				j++
			}
			op := string(runes[i:j])
			if op == "=" {
				return nil, fmt.Errorf("非法操作符 '='，相等比较请使用 '=='")
			}
			if op == "!" {
				tokens = append(tokens, token{tokNot, "!"})
			} else {
				tokens = append(tokens, token{tokOp, op})
			}
			i = j
		case c == '&':
			tokens = append(tokens, token{tokAnd, "&"})
			i++
			if i < len(runes) && runes[i] == '&' {
				i++
			}
		case c == '|':
			tokens = append(tokens, token{tokOr, "|"})
			i++
			if i < len(runes) && runes[i] == '|' {
				i++
			}
		case unicode.IsDigit(c) || (c == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, string(runes[i:j])})
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i + 1
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			word := string(runes[i:j])
			switch strings.ToLower(word) {
			case "and":
				tokens = append(tokens, token{tokAnd, word})
			case "or":
				tokens = append(tokens, token{tokOr, word})
			case "not":
				tokens = append(tokens, token{tokNot, word})
			case "true":
				tokens = append(tokens, token{tokTrue, word})
			case "false":
				tokens = append(tokens, token{tokFalse, word})
			default:
				tokens = append(tokens, token{tokIdent, word})
			}
			i = j
		default:
			return nil, fmt.Errorf("无法识别的字符 '%c'", c)
		}
	}
	tokens = append(tokens, token{tokEOF, ""})
	return tokens, nil
}

// ---- 递归下降解析 ----

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// ParseExpression 将表达式字符串解析为 AST
func ParseExpression(input string) (Expression, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("表达式不能为空")
	}
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("表达式 '%s' 存在多余内容 '%s'", input, p.peek().text)
	}
	return expr, nil
}

func (p *parser) parseOr() (Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &andExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expression, error) {
	if p.peek().kind == tokNot {
		p.next()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notExpr{inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expression, error) {
	if p.peek().kind == tokLParen {
		p.next()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("缺少右括号")
		}
		p.next()
		return expr, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expression, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	if p.peek().kind != tokOp {
		// 无操作符：裸列引用或布尔字面量
		if left.isCol {
			return &boolColumn{column: left.column}, nil
		}
		if b, ok := left.literal.(bool); ok {
			return &boolLiteral{value: b}, nil
		}
		return nil, fmt.Errorf("字面量 %v 不能单独作为布尔表达式", left.literal)
	}

	op := p.next().text
	if !IsValidOperator(op) {
		return nil, fmt.Errorf("非法的比较操作符: %s", op)
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &compareExpr{left: left, op: op, right: right}, nil
}

func (p *parser) parseOperand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokIdent:
		return operand{column: t.text, isCol: true}, nil
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return operand{}, fmt.Errorf("非法的数值字面量 '%s'", t.text)
		}
		return operand{literal: f}, nil
	case tokString:
		return operand{literal: t.text}, nil
	case tokTrue:
		return operand{literal: true}, nil
	case tokFalse:
		return operand{literal: false}, nil
	default:
		return operand{}, fmt.Errorf("意外的符号 '%s'", t.text)
	}
}

// DatasetRowAccessor 构造绑定到数据集某一行的取值器
func DatasetRowAccessor(ds *models.Dataset, row int) RowAccessor {
	return func(column string) (interface{}, bool, error) {
		col, ok := ds.Column(column)
		if !ok {
			return nil, false, fmt.Errorf("列 '%s' 不存在", column)
		}
		v := col.Values[row]
		if models.IsMissing(v) {
			return nil, false, nil
		}
		return v, true, nil
	}
}
