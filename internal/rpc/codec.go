package rpc

import (
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	language "github.com/hanpama/fieldmerge/internal/language"
	validator "github.com/hanpama/fieldmerge/internal/validator"
)

func field(md protoreflect.MessageDescriptor, name protoreflect.Name) protoreflect.FieldDescriptor {
	return md.Fields().ByName(name)
}

func encodeRequest(md protoreflect.MessageDescriptor, req validator.Request) *dynamicpb.Message {
	msg := dynamicpb.NewMessage(md)
	msg.Set(field(md, "query"), protoreflect.ValueOfString(req.Query))
	if req.OperationName != "" {
		msg.Set(field(md, "operation_name"), protoreflect.ValueOfString(req.OperationName))
	}
	return msg
}

func decodeRequest(msg protoreflect.Message) validator.Request {
	md := msg.Descriptor()
	return validator.Request{
		Query:         msg.Get(field(md, "query")).String(),
		OperationName: msg.Get(field(md, "operation_name")).String(),
	}
}

func encodeResponse(md protoreflect.MessageDescriptor, errs language.ErrorList) *dynamicpb.Message {
	msg := dynamicpb.NewMessage(md)
	msg.Set(field(md, "valid"), protoreflect.ValueOfBool(len(errs) == 0))

	diagnostics := msg.Mutable(field(md, "diagnostics")).List()
	for _, e := range errs {
		d := diagnostics.NewElement().Message()
		dd := d.Descriptor()
		d.Set(field(dd, "message"), protoreflect.ValueOfString(e.Message))
		if e.Rule != "" {
			d.Set(field(dd, "rule"), protoreflect.ValueOfString(e.Rule))
		}
		locations := d.Mutable(field(dd, "locations")).List()
		for _, loc := range e.Locations {
			l := locations.NewElement().Message()
			ld := l.Descriptor()
			l.Set(field(ld, "line"), protoreflect.ValueOfInt32(int32(loc.Line)))
			l.Set(field(ld, "column"), protoreflect.ValueOfInt32(int32(loc.Column)))
			locations.Append(protoreflect.ValueOfMessage(l))
		}
		diagnostics.Append(protoreflect.ValueOfMessage(d))
	}
	return msg
}

func decodeResponse(msg protoreflect.Message) language.ErrorList {
	md := msg.Descriptor()
	diagnostics := msg.Get(field(md, "diagnostics")).List()
	var errs language.ErrorList
	for i := 0; i < diagnostics.Len(); i++ {
		d := diagnostics.Get(i).Message()
		dd := d.Descriptor()
		e := &language.Error{
			Message: d.Get(field(dd, "message")).String(),
			Rule:    d.Get(field(dd, "rule")).String(),
		}
		locations := d.Get(field(dd, "locations")).List()
		for j := 0; j < locations.Len(); j++ {
			l := locations.Get(j).Message()
			ld := l.Descriptor()
			e.Locations = append(e.Locations, language.Location{
				Line:   int(l.Get(field(ld, "line")).Int()),
				Column: int(l.Get(field(ld, "column")).Int()),
			})
		}
		errs = append(errs, e)
	}
	return errs
}
