package xconf

import "testing"

func FuzzSamplerConfig(f *testing.F) {
	f.Add([]byte(`{"type":"ratio","ratio":0.25}`))
	f.Add([]byte(`{"type":"key_based","ratio":1,"key":"user.id","parent_based":true}`))
	f.Add([]byte(`{"type":"rate","ratio":0.5}`))
	f.Add([]byte(`{"type":"bogus"}`))
	f.Add([]byte(`[`))

	f.Fuzz(func(t *testing.T, data []byte) {
		cfg, err := NewFromBytes(data, FormatJSON)
		if err != nil {
			return
		}
		var sc SamplerConfig
		if cfg.Unmarshal("", &sc) != nil {
			return
		}
		s, err := sc.Build()
		if err == nil && s == nil {
			t.Fatal("nil sampler without error")
		}
	})
}
