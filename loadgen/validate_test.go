package loadgen_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/press/loadgen"
)

func TestValidate(t *testing.T) {
	valid := loadgen.DefaultConfig("http://127.0.0.1:8080/")

	tests := []struct {
		name      string
		mutate    func(c *loadgen.Config)
		expFields []string
	}{
		{name: "default config", mutate: func(*loadgen.Config) {}},
		{name: "throttled", mutate: func(c *loadgen.Config) { c.Rate, c.Burst = 100, 10 }},
		{name: "missing url", mutate: func(c *loadgen.Config) { c.URL = "" }, expFields: []string{"url"}},
		{name: "not a url", mutate: func(c *loadgen.Config) { c.URL = "127.0.0.1" }, expFields: []string{"url"}},
		{name: "bad method", mutate: func(c *loadgen.Config) { c.Method = "BREW" }, expFields: []string{"method"}},
		{name: "no connections", mutate: func(c *loadgen.Config) { c.Connections = 0 }, expFields: []string{"connections"}},
		{name: "no duration", mutate: func(c *loadgen.Config) { c.Duration = 0 }, expFields: []string{"duration"}},
		{name: "negative rate", mutate: func(c *loadgen.Config) { c.Rate = -1 }, expFields: []string{"rate", "burst"}},
		{name: "rate without burst", mutate: func(c *loadgen.Config) { c.Rate = 10 }, expFields: []string{"burst"}},
		{name: "negative timeout", mutate: func(c *loadgen.Config) { c.Timeout = -time.Second }, expFields: []string{"timeout"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := loadgen.Validate(cfg)
			if len(tt.expFields) == 0 {
				if err != nil {
					t.Fatalf("exp no error, got %v", err)
				}
				return
			}

			var fe loadgen.FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("exp FieldErrors, got %T: %v", err, err)
			}

			var got []string
			for _, f := range fe {
				got = append(got, f.Field)
			}
			if diff := cmp.Diff(tt.expFields, got); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate_Messages(t *testing.T) {
	cfg := loadgen.DefaultConfig("")
	cfg.Rate = 5

	err := loadgen.Validate(cfg)

	var fe loadgen.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("exp FieldErrors, got %v", err)
	}

	exp := map[string]string{
		"url":   "This field is required",
		"burst": "This field is required when rate is set",
	}
	if diff := cmp.Diff(exp, fe.Fields()); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	if fe.Error() != "url: This field is required; burst: This field is required when rate is set" {
		t.Errorf("unexpected error string %q", fe.Error())
	}
}
