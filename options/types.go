package options

import (
	"math"
	"strconv"
	"time"
)

type (
	baseOption struct {
		name string
		def  interface{}
	}

	// BoolOption is option with bool value.
	BoolOption interface {
		Option
		Value(val interface{}) bool
		ValueFrom(opts ...Options) bool
	}

	boolOption struct {
		baseOption
	}

	// IntOption is option with int value.
	IntOption interface {
		Option
		Value(val interface{}) int
		ValueFrom(opts ...Options) int
	}

	intOption struct {
		baseOption
	}

	// Uint32Option is option with uint32 value.
	Uint32Option interface {
		Option
		Value(val interface{}) uint32
		ValueFrom(opts ...Options) uint32
	}

	uint32Option struct {
		baseOption
	}

	// TimeDurationOption is option with time duration value.
	TimeDurationOption interface {
		Option
		Value(val interface{}) time.Duration
		ValueFrom(opts ...Options) time.Duration
	}

	timeDurationOption struct {
		baseOption
	}

	// StringOption is option with string value.
	StringOption interface {
		Option
		Value(val interface{}) string
		ValueFrom(opts ...Options) string
	}

	stringOption struct {
		baseOption
		validate func(string) error
	}

	// AnyOption is option with any value, it can not be parsed from text.
	AnyOption interface {
		Option
		ValueFrom(opts ...Options) interface{}
	}

	anyOption struct {
		baseOption
	}
)

func (o *baseOption) Name() string {
	return o.name
}

func (o *baseOption) Default() interface{} {
	return o.def
}

// NewBoolOption create a bool option
func NewBoolOption(name string, def bool) BoolOption {
	o := &boolOption{baseOption{name, def}}
	register(o)
	return o
}

// Validate validate the option value
func (o *boolOption) Validate(val interface{}) (interface{}, error) {
	if _, ok := val.(bool); !ok {
		return nil, ErrInvalidOptionValue
	}
	return val, nil
}

func (o *boolOption) Parse(s string) (interface{}, error) {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, ErrInvalidOptionValue
	}
	return v, nil
}

// Value get option's value, must ensure option value is not empty
func (o *boolOption) Value(val interface{}) bool {
	return val.(bool)
}

func (o *boolOption) ValueFrom(opts ...Options) bool {
	return valueFrom(o, opts).(bool)
}

// NewIntOption create an int option
func NewIntOption(name string, def int) IntOption {
	o := &intOption{baseOption{name, def}}
	register(o)
	return o
}

func toInt64(val interface{}) (int64, bool) {
	switch v := val.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		// config decoders may produce floats
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

// Validate validate the option value
func (o *intOption) Validate(val interface{}) (interface{}, error) {
	v, ok := toInt64(val)
	if !ok || v > math.MaxInt32 || v < math.MinInt32 {
		return nil, ErrInvalidOptionValue
	}
	return int(v), nil
}

func (o *intOption) Parse(s string) (interface{}, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, ErrInvalidOptionValue
	}
	return o.Validate(v)
}

// Value get option's value, must ensure option value is not empty
func (o *intOption) Value(val interface{}) int {
	return val.(int)
}

func (o *intOption) ValueFrom(opts ...Options) int {
	return valueFrom(o, opts).(int)
}

// NewUint32Option create an uint32 option
func NewUint32Option(name string, def uint32) Uint32Option {
	o := &uint32Option{baseOption{name, def}}
	register(o)
	return o
}

// Validate validate the option value
func (o *uint32Option) Validate(val interface{}) (interface{}, error) {
	v, ok := toInt64(val)
	if !ok || v < 0 || v > math.MaxUint32 {
		return nil, ErrInvalidOptionValue
	}
	return uint32(v), nil
}

func (o *uint32Option) Parse(s string) (interface{}, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return nil, ErrInvalidOptionValue
	}
	return uint32(v), nil
}

// Value get option's value, must ensure option value is not empty
func (o *uint32Option) Value(val interface{}) uint32 {
	return val.(uint32)
}

func (o *uint32Option) ValueFrom(opts ...Options) uint32 {
	return valueFrom(o, opts).(uint32)
}

// NewTimeDurationOption create a time duration option
func NewTimeDurationOption(name string, def time.Duration) TimeDurationOption {
	o := &timeDurationOption{baseOption{name, def}}
	register(o)
	return o
}

// Validate validate the option value
func (o *timeDurationOption) Validate(val interface{}) (interface{}, error) {
	switch v := val.(type) {
	case time.Duration:
		return v, nil
	case string:
		return o.Parse(v)
	}
	return nil, ErrInvalidOptionValue
}

func (o *timeDurationOption) Parse(s string) (interface{}, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, ErrInvalidOptionValue
	}
	return d, nil
}

// Value get option's value, must ensure option value is not empty
func (o *timeDurationOption) Value(val interface{}) time.Duration {
	return val.(time.Duration)
}

func (o *timeDurationOption) ValueFrom(opts ...Options) time.Duration {
	return valueFrom(o, opts).(time.Duration)
}

// NewStringOption create a string option
func NewStringOption(name string, def string) StringOption {
	return NewStringOptionWithValidator(name, def, nil)
}

// NewStringOptionWithValidator create a string option whose values are checked by validate,
// the empty string is always valid.
func NewStringOptionWithValidator(name string, def string, validate func(string) error) StringOption {
	o := &stringOption{baseOption{name, def}, validate}
	register(o)
	return o
}

// Validate validate the option value
func (o *stringOption) Validate(val interface{}) (interface{}, error) {
	s, ok := val.(string)
	if !ok {
		return nil, ErrInvalidOptionValue
	}
	return o.Parse(s)
}

func (o *stringOption) Parse(s string) (interface{}, error) {
	if o.validate != nil && s != "" {
		if err := o.validate(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Value get option's value, must ensure option value is not empty
func (o *stringOption) Value(val interface{}) string {
	return val.(string)
}

func (o *stringOption) ValueFrom(opts ...Options) string {
	return valueFrom(o, opts).(string)
}

// NewAnyOption create an any value option, it is not registered by name.
func NewAnyOption(name string, def interface{}) AnyOption {
	return &anyOption{baseOption{name, def}}
}

func (o *anyOption) Validate(val interface{}) (interface{}, error) {
	return val, nil
}

func (o *anyOption) Parse(s string) (interface{}, error) {
	return nil, ErrInvalidOptionValue
}

func (o *anyOption) ValueFrom(opts ...Options) interface{} {
	return valueFrom(o, opts)
}
