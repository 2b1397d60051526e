package filtergraph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vetkit/vetkit/internal/semver"
)

const (
	includeFunctionNameConstant = "include"
	excludeFunctionNameConstant = "exclude"
	anyFunctionNameConstant     = "any"
	allFunctionNameConstant     = "all"
	notFunctionNameConstant     = "not"
	nameFunctionNameConstant    = "name"
	versionFunctionNameConstant = "version"
	isRootFunctionNameConstant             = "is_root"
	isWorkspaceMemberFunctionNameConstant  = "is_workspace_member"
	isThirdPartyFunctionNameConstant       = "is_third_party"
	isDevOnlyFunctionNameConstant          = "is_dev_only"

	unexpectedEndOfInputMessageConstant   = "filter graph query: unexpected end of input"
	unexpectedTokenTemplateConstant       = "filter graph query: expected %q, found %q"
	unknownFunctionTemplateConstant       = "filter graph query: unknown function %q"
	wrongArityTemplateConstant            = "filter graph query: %q expects %d argument(s), found %d"
	malformedVersionArgumentTemplateConstant = "filter graph query: malformed version argument %q: %w"
	malformedBooleanArgumentTemplateConstant = "filter graph query: malformed boolean argument %q: %w"
	trailingInputTemplateConstant         = "filter graph query: unexpected trailing input %q"
)

// Parse parses a single filter expression such as
// `exclude(any(is_dev_only(true), name(criterion)))`.
func Parse(raw string) (Filter, error) {
	parser := &parser{input: raw}
	parser.skipSpace()

	functionName, arguments, parseError := parser.parseCall()
	if parseError != nil {
		return Filter{}, parseError
	}

	parser.skipSpace()
	if parser.position != len(parser.input) {
		return Filter{}, fmt.Errorf(trailingInputTemplateConstant, parser.input[parser.position:])
	}

	var mode Mode
	switch functionName {
	case includeFunctionNameConstant:
		mode = ModeInclude
	case excludeFunctionNameConstant:
		mode = ModeExclude
	default:
		return Filter{}, fmt.Errorf(unknownFunctionTemplateConstant, functionName)
	}
	if len(arguments) != 1 {
		return Filter{}, fmt.Errorf(wrongArityTemplateConstant, functionName, 1, len(arguments))
	}

	query, queryError := arguments[0].toQuery()
	if queryError != nil {
		return Filter{}, queryError
	}
	return Filter{Mode: mode, Query: query}, nil
}

// expression is either a nested call (with its own arguments) or a bare
// literal argument such as a string, bool, or version.
type expression struct {
	function  string
	arguments []expression
	literal   string
	isLiteral bool
}

func (expr expression) toQuery() (Query, error) {
	if expr.isLiteral {
		return nil, fmt.Errorf(unknownFunctionTemplateConstant, expr.literal)
	}

	switch expr.function {
	case anyFunctionNameConstant:
		children, childError := toQueries(expr.arguments)
		if childError != nil {
			return nil, childError
		}
		return anyQuery{children: children}, nil
	case allFunctionNameConstant:
		children, childError := toQueries(expr.arguments)
		if childError != nil {
			return nil, childError
		}
		return allQuery{children: children}, nil
	case notFunctionNameConstant:
		if len(expr.arguments) != 1 {
			return nil, fmt.Errorf(wrongArityTemplateConstant, notFunctionNameConstant, 1, len(expr.arguments))
		}
		child, childError := expr.arguments[0].toQuery()
		if childError != nil {
			return nil, childError
		}
		return notQuery{child: child}, nil
	case nameFunctionNameConstant:
		value, argError := expr.singleLiteral()
		if argError != nil {
			return nil, argError
		}
		return nameQuery{name: value}, nil
	case versionFunctionNameConstant:
		value, argError := expr.singleLiteral()
		if argError != nil {
			return nil, argError
		}
		parsed, parseError := semver.Parse(value)
		if parseError != nil {
			return nil, fmt.Errorf(malformedVersionArgumentTemplateConstant, value, parseError)
		}
		return versionQuery{version: parsed}, nil
	case isRootFunctionNameConstant:
		want, boolError := expr.singleBoolean()
		if boolError != nil {
			return nil, boolError
		}
		return isRootQuery{want: want}, nil
	case isWorkspaceMemberFunctionNameConstant:
		want, boolError := expr.singleBoolean()
		if boolError != nil {
			return nil, boolError
		}
		return isWorkspaceMemberQuery{want: want}, nil
	case isThirdPartyFunctionNameConstant:
		want, boolError := expr.singleBoolean()
		if boolError != nil {
			return nil, boolError
		}
		return isThirdPartyQuery{want: want}, nil
	case isDevOnlyFunctionNameConstant:
		want, boolError := expr.singleBoolean()
		if boolError != nil {
			return nil, boolError
		}
		return isDevOnlyQuery{want: want}, nil
	default:
		return nil, fmt.Errorf(unknownFunctionTemplateConstant, expr.function)
	}
}

func (expr expression) singleLiteral() (string, error) {
	if len(expr.arguments) != 1 || !expr.arguments[0].isLiteral {
		return "", fmt.Errorf(wrongArityTemplateConstant, expr.function, 1, len(expr.arguments))
	}
	return expr.arguments[0].literal, nil
}

func (expr expression) singleBoolean() (bool, error) {
	value, literalError := expr.singleLiteral()
	if literalError != nil {
		return false, literalError
	}
	parsed, parseError := strconv.ParseBool(value)
	if parseError != nil {
		return false, fmt.Errorf(malformedBooleanArgumentTemplateConstant, value, parseError)
	}
	return parsed, nil
}

func toQueries(expressions []expression) ([]Query, error) {
	queries := make([]Query, 0, len(expressions))
	for _, childExpression := range expressions {
		query, queryError := childExpression.toQuery()
		if queryError != nil {
			return nil, queryError
		}
		queries = append(queries, query)
	}
	return queries, nil
}

type parser struct {
	input    string
	position int
}

func (parser *parser) skipSpace() {
	for parser.position < len(parser.input) && isSpace(parser.input[parser.position]) {
		parser.position++
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// parseCall parses `name(arg, arg, ...)` and returns the function name and
// its parsed argument expressions.
func (parser *parser) parseCall() (string, []expression, error) {
	name, nameError := parser.parseIdentifier()
	if nameError != nil {
		return "", nil, nameError
	}

	parser.skipSpace()
	if consumeError := parser.consume('('); consumeError != nil {
		return "", nil, consumeError
	}

	var arguments []expression
	parser.skipSpace()
	if parser.peek() == ')' {
		parser.position++
		return name, arguments, nil
	}

	for {
		parser.skipSpace()
		argument, argumentError := parser.parseExpression()
		if argumentError != nil {
			return "", nil, argumentError
		}
		arguments = append(arguments, argument)

		parser.skipSpace()
		switch parser.peek() {
		case ',':
			parser.position++
			continue
		case ')':
			parser.position++
			return name, arguments, nil
		default:
			return "", nil, parser.unexpectedTokenError(")")
		}
	}
}

func (parser *parser) parseExpression() (expression, error) {
	start := parser.position
	identifier, identifierError := parser.parseIdentifier()
	if identifierError != nil {
		return expression{}, identifierError
	}

	parser.skipSpace()
	if parser.peek() == '(' {
		parser.position = start
		functionName, arguments, callError := parser.parseCall()
		if callError != nil {
			return expression{}, callError
		}
		return expression{function: functionName, arguments: arguments}, nil
	}

	return expression{literal: identifier, isLiteral: true}, nil
}

func (parser *parser) parseIdentifier() (string, error) {
	start := parser.position
	for parser.position < len(parser.input) {
		b := parser.input[parser.position]
		if b == '(' || b == ')' || b == ',' || isSpace(b) {
			break
		}
		parser.position++
	}
	if parser.position == start {
		if parser.position >= len(parser.input) {
			return "", fmt.Errorf(unexpectedEndOfInputMessageConstant)
		}
		return "", parser.unexpectedTokenError("identifier")
	}
	return strings.TrimSpace(parser.input[start:parser.position]), nil
}

func (parser *parser) peek() byte {
	if parser.position >= len(parser.input) {
		return 0
	}
	return parser.input[parser.position]
}

func (parser *parser) consume(expected byte) error {
	if parser.peek() != expected {
		return parser.unexpectedTokenError(string(expected))
	}
	parser.position++
	return nil
}

func (parser *parser) unexpectedTokenError(expected string) error {
	found := "<eof>"
	if parser.position < len(parser.input) {
		found = string(parser.input[parser.position])
	}
	return fmt.Errorf(unexpectedTokenTemplateConstant, expected, found)
}
