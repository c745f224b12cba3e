package perf

import (
	log "github.com/sirupsen/logrus"
)

// fixed benchmark key pairs in Z85
const (
	ServerPublicKey = "DX4nh=yUn{-9ugra0X3Src4SU-4xTgqxcYY.+<SH"
	ServerSecretKey = "{X}#>t#jRGaQ}gMhv=30r(Mw+87YGs+5%kh=i@f8"
	ClientPublicKey = "<n^oA}I:66W+*ds3tAmi1+KJzv-}k&fC2aA5Bj0K"
	ClientSecretKey = "9R9bV}[6z6DC-%$!jTVTKvWc=LEL{4i4gzUe$@Zx"
)

type (
	// Security is the key material of an endpoint, keys are in Z85.
	Security struct {
		Server    bool   `yaml:"server" json:"server"`
		SecretKey string `yaml:"secret_key" json:"secret_key"`
		PublicKey string `yaml:"public_key" json:"public_key"`
		ServerKey string `yaml:"server_key" json:"server_key"`
	}

	// EndpointConfig is the tuning applied to an endpoint before use, zero sizes keep the engine default.
	EndpointConfig struct {
		RecvBuffer   int       `yaml:"recv_buffer" json:"recv_buffer"`
		SendBuffer   int       `yaml:"send_buffer" json:"send_buffer"`
		InBatchSize  int       `yaml:"in_batch_size" json:"in_batch_size"`
		OutBatchSize int       `yaml:"out_batch_size" json:"out_batch_size"`
		Security     *Security `yaml:"security,omitempty" json:"security,omitempty"`
	}
)

// DefaultEndpointConfig returns 1MiB kernel buffers and batches without security.
func DefaultEndpointConfig() EndpointConfig {
	return EndpointConfig{
		RecvBuffer:   1024 * 1024,
		SendBuffer:   1024 * 1024,
		InBatchSize:  1024 * 1024,
		OutBatchSize: 1024 * 1024,
	}
}

// ServerSecurity returns the benchmark server keys.
func ServerSecurity() *Security {
	return &Security{
		Server:    true,
		SecretKey: ServerSecretKey,
	}
}

// ClientSecurity returns the benchmark client keys.
func ClientSecurity() *Security {
	return &Security{
		SecretKey: ClientSecretKey,
		PublicKey: ClientPublicKey,
		ServerKey: ServerPublicKey,
	}
}

type setting struct {
	key OptionKey
	val interface{}
}

func (s *Security) settings() []setting {
	if s.Server {
		return []setting{
			{CurveSecretKey, s.SecretKey},
			{CurveServer, true},
		}
	}
	res := []setting{{CurveSecretKey, s.SecretKey}}
	if s.PublicKey != "" {
		res = append(res, setting{CurvePublicKey, s.PublicKey})
	}
	return append(res, setting{CurveServerKey, s.ServerKey})
}

// Configure apply cfg to ep, it stops at the first failed option.
func Configure(ep Endpoint, cfg EndpointConfig) error {
	var settings []setting
	if cfg.Security != nil {
		settings = cfg.Security.settings()
	}
	settings = append(settings,
		setting{RecvBuffer, cfg.RecvBuffer},
		setting{SendBuffer, cfg.SendBuffer},
	)
	if cfg.InBatchSize > 0 || cfg.OutBatchSize > 0 {
		log.WithField("domain", "perf").
			Infof("setting batching size to %d/%d bytes", cfg.InBatchSize, cfg.OutBatchSize)
	}
	settings = append(settings,
		setting{InBatchSize, cfg.InBatchSize},
		setting{OutBatchSize, cfg.OutBatchSize},
	)

	for _, st := range settings {
		if v, ok := st.val.(int); ok && v <= 0 {
			continue
		}
		if err := ep.SetOption(st.key, st.val); err != nil {
			return newError(ConfigurationError, "setsockopt "+st.key.String(), err)
		}
	}
	return nil
}
