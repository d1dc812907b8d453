package polystore

import (
	"github.com/go-viper/mapstructure/v2"
)

// DecodeOptions decodes a raw string option map into a service's config
// struct. Fields are matched through `mapstructure` tags; values are
// weakly typed, so "true" and "4096" decode into bool and int fields.
//
// An option key the target struct does not declare fails decoding with a
// ConfigInvalid error naming the key. Misspelled options surface at
// construction instead of being silently ignored.
func DecodeOptions(options map[string]string, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return NewError(KindInternal, "building option decoder").WithCause(err)
	}
	if err := dec.Decode(options); err != nil {
		return NewError(KindConfigInvalid, "invalid options").WithCause(err)
	}
	return nil
}
