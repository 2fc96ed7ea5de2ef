package outline

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	tagApplication = 0
	tagPackage     = 1
)

// EncodeMsgpack writes the Application/Package discriminant byte (§4.4)
// before the variant's own fields.
func (o Outline) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch o.Kind {
	case Application:
		if err := enc.EncodeUint8(tagApplication); err != nil {
			return err
		}
		return enc.Encode(o.ApplicationData)
	case Package:
		if err := enc.EncodeUint8(tagPackage); err != nil {
			return err
		}
		return enc.Encode(o.PackageData)
	default:
		return fmt.Errorf("unknown outline kind %d", o.Kind)
	}
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (o *Outline) DecodeMsgpack(dec *msgpack.Decoder) error {
	tag, err := dec.DecodeUint8()
	if err != nil {
		return fmt.Errorf("missing Outline discriminant: %w", err)
	}
	switch tag {
	case tagApplication:
		o.Kind = Application
		o.ApplicationData = &ApplicationOutline{}
		return dec.Decode(o.ApplicationData)
	case tagPackage:
		o.Kind = Package
		o.PackageData = &PackageOutline{}
		return dec.Decode(o.PackageData)
	default:
		return fmt.Errorf("unknown Outline discriminant %d", tag)
	}
}
