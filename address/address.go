package address

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/options"
)

type (
	// Address is a parsed endpoint address with its option values.
	Address interface {
		String() string
		Scheme() string
		// Address is the transport address without options, e.g. tcp://127.0.0.1:5555
		Address() string
		OptionValues() options.OptionValues
	}

	endpointAddress struct {
		raw    string
		scheme string
		addr   string
		ovs    options.OptionValues
	}
)

// Parse parse s to an Address,
// query parameters are registered option names, e.g. tcp://*:5555?tcp.NoDelay=false
func Parse(s string) (ea Address, err error) {
	idx := strings.Index(s, "://")
	if idx <= 0 {
		err = errs.ErrBadAddr
		return
	}
	scheme := s[:idx]
	rest := s[idx+3:]
	query := ""
	if qi := strings.IndexByte(rest, '?'); qi >= 0 {
		query = rest[qi+1:]
		rest = rest[:qi]
	}
	if rest == "" {
		err = errs.ErrBadAddr
		return
	}

	ovs := options.OptionValues{}
	if query != "" {
		var q url.Values
		if q, err = url.ParseQuery(query); err != nil {
			return
		}
		for k := range q {
			opt, ok := options.Lookup(k)
			if !ok {
				return nil, &options.OptionError{Name: k, Err: options.ErrUnknownOption}
			}
			val, perr := opt.Parse(q.Get(k))
			if perr != nil {
				return nil, &options.OptionError{Name: k, Err: perr}
			}
			ovs[opt] = val
		}
	}

	ea = &endpointAddress{
		raw:    s,
		scheme: scheme,
		addr:   fmt.Sprintf("%s://%s", scheme, rest),
		ovs:    ovs,
	}
	return
}

func (ea *endpointAddress) String() string {
	return ea.raw
}

func (ea *endpointAddress) Scheme() string {
	return ea.scheme
}

func (ea *endpointAddress) Address() string {
	return ea.addr
}

func (ea *endpointAddress) OptionValues() options.OptionValues {
	return ea.ovs
}
