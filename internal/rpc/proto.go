package rpc

import (
	"io"

	"github.com/jhump/protoreflect/v2/protoprint"
)

// WriteProto prints the .proto source of the Validator service to w.
func WriteProto(w io.Writer) error {
	fd, err := Descriptor()
	if err != nil {
		return err
	}
	pp := protoprint.Printer{}
	return pp.PrintProtoFile(fd, w)
}
