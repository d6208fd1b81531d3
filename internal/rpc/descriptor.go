package rpc

import (
	"strings"
	"sync"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	ProtoFile    = "fieldmerge/v1/validator.proto"
	ProtoPackage = "fieldmerge.v1"
	ServiceName  = "Validator"
	MethodName   = "Validate"
)

// FullMethod is the gRPC method path of Validator/Validate.
const FullMethod = "/" + ProtoPackage + "." + ServiceName + "/" + MethodName

type messageField struct {
	name     string
	kind     protoreflect.Kind
	message  *protobuilder.MessageBuilder
	repeated bool
	doc      string
}

// Descriptor returns the file descriptor declaring the Validator service.
var Descriptor = sync.OnceValues(buildDescriptor)

func buildDescriptor() (protoreflect.FileDescriptor, error) {
	file := protobuilder.NewFile(ProtoFile)
	file.SetPackageName(ProtoPackage)
	file.SetSyntax(protoreflect.Proto3)

	request := newMessage("ValidateRequest", "A GraphQL document to validate.",
		messageField{name: "query", kind: protoreflect.StringKind, doc: "Query document source text."},
		messageField{name: "operationName", kind: protoreflect.StringKind, doc: "Operation the client intends to run. Used for tracing only."},
	)
	location := newMessage("Location", "A 1-based position in the query document.",
		messageField{name: "line", kind: protoreflect.Int32Kind},
		messageField{name: "column", kind: protoreflect.Int32Kind},
	)
	diagnostic := newMessage("Diagnostic", "A validation or syntax error.",
		messageField{name: "message", kind: protoreflect.StringKind},
		messageField{name: "locations", message: location, repeated: true},
		messageField{name: "rule", kind: protoreflect.StringKind, doc: "Name of the rule that reported it. Empty for syntax errors."},
	)
	response := newMessage("ValidateResponse", "",
		messageField{name: "valid", kind: protoreflect.BoolKind},
		messageField{name: "diagnostics", message: diagnostic, repeated: true},
	)
	for _, mb := range []*protobuilder.MessageBuilder{request, location, diagnostic, response} {
		file.AddMessage(mb)
	}

	method := protobuilder.NewMethod(MethodName,
		protobuilder.RpcTypeMessage(request, false),
		protobuilder.RpcTypeMessage(response, false),
	)
	method.SetComments(comment("Validate reports fields of a document that cannot be merged."))
	service := protobuilder.NewService(ServiceName)
	service.SetComments(comment("Validator checks GraphQL documents against the loaded schema."))
	service.AddMethod(method)
	file.AddService(service)

	return file.Build()
}

func newMessage(name protoreflect.Name, doc string, fields ...messageField) *protobuilder.MessageBuilder {
	mb := protobuilder.NewMessage(name)
	mb.SetComments(comment(doc))
	for i, f := range fields {
		typ := protobuilder.FieldTypeScalar(f.kind)
		if f.message != nil {
			typ = protobuilder.FieldTypeMessage(f.message)
		}
		fb := protobuilder.NewField(protoreflect.Name(snakeCase(f.name)), typ)
		fb.SetNumber(protoreflect.FieldNumber(i + 1))
		fb.SetComments(comment(f.doc))
		if f.repeated {
			fb.SetRepeated()
		}
		mb.AddField(fb)
	}
	return mb
}

func comment(desc string) protobuilder.Comments {
	if desc == "" {
		return protobuilder.Comments{}
	}
	lines := strings.Split(desc, "\n")
	for i, line := range lines {
		lines[i] = " " + line
	}
	return protobuilder.Comments{LeadingComment: strings.Join(lines, "\n") + "\n"}
}

// snakeCase converts a camelCase GraphQL name to a proto field name.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

func methodDescriptor() (protoreflect.MethodDescriptor, error) {
	fd, err := Descriptor()
	if err != nil {
		return nil, err
	}
	return fd.Services().ByName(ServiceName).Methods().ByName(MethodName), nil
}
