package language

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

func ParseQuery(source string) (*QueryDocument, error) {
	return ParseNamedQuery("", source)
}

// ParseNamedQuery parses a query document whose positions report name as their source.
func ParseNamedQuery(name, source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseSchemas parses several SDL sources into one document. Definitions and
// extensions keep the source they came from in their positions.
func ParseSchemas(sources ...*Source) (*SchemaDocument, error) {
	doc, err := parser.ParseSchemas(sources...)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// AsError converts err into a located GraphQL error. Parser errors already are.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if ge, ok := err.(*Error); ok {
		return ge
	}
	return gqlerror.Errorf("%s", err.Error())
}

// LocationOf returns the line and column of pos, or the zero location if pos is nil.
func LocationOf(pos *Position) Location {
	if pos == nil {
		return Location{}
	}
	return Location{Line: pos.Line, Column: pos.Column}
}
