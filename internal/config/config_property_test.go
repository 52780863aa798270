package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// Property 4: configuration layering. Environment beats the YAML file,
// the file beats the defaults, and every typed value is parsed or rejected.

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// setEnv sets the given variables until the returned func runs.
func setEnv(env map[string]string) func() {
	for k, v := range env {
		os.Setenv(k, v)
	}
	return func() {
		for k := range env {
			os.Unsetenv(k)
		}
	}
}

// layer is one optional value for a config field: set in the file, in
// the environment, in both or in neither.
type layer struct {
	inFile, inEnv bool
	file, env     string
}

func drawLayer(t *rapid.T, name string, gen *rapid.Generator[string]) layer {
	return layer{
		inFile: rapid.Bool().Draw(t, name+"InFile"),
		inEnv:  rapid.Bool().Draw(t, name+"InEnv"),
		file:   gen.Draw(t, name+"File"),
		env:    gen.Draw(t, name+"Env"),
	}
}

// want resolves the layer the way LoadFile should.
func (l layer) want(def string) string {
	switch {
	case l.inEnv:
		return l.env
	case l.inFile:
		return l.file
	}
	return def
}

func TestProperty_LoadFileLayering(t *testing.T) {
	dir := t.TempDir()
	keys := []string{"seed-a", "seed-b", "seed-c", "seed-d"}
	genKey := rapid.Map(rapid.SampledFrom(keys), func(s string) string {
		return pubkey.NewFromSeed(s).String()
	})
	genPort := rapid.Map(rapid.IntRange(1, 65535), strconv.Itoa)
	genDegree := rapid.Map(rapid.IntRange(2, 128), strconv.Itoa)
	genNamespace := rapid.StringMatching(`[a-z][a-z_]{0,11}`)

	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		fields := []struct {
			yamlKey, envKey string
			quoted          bool
			l               layer
			def             string
			got             func(*Config) string
		}{
			{"port", "PORT", false, drawLayer(t, "port", genPort), "8080",
				func(c *Config) string { return strconv.Itoa(c.Port) }},
			{"book_degree", "BOOK_DEGREE", false, drawLayer(t, "degree", genDegree), "32",
				func(c *Config) string { return strconv.Itoa(c.BookDegree) }},
			{"metrics_namespace", "METRICS_NAMESPACE", true, drawLayer(t, "namespace", genNamespace), "ledgerauction",
				func(c *Config) string { return c.MetricsNamespace }},
			{"auction_program_id", "AUCTION_PROGRAM_ID", true, drawLayer(t, "auctionProgram", genKey), DefaultAuctionProgramID,
				func(c *Config) string { return c.AuctionProgram.String() }},
		}

		var yaml strings.Builder
		env := make(map[string]string)
		for _, f := range fields {
			switch {
			case f.l.inFile && f.quoted:
				fmt.Fprintf(&yaml, "%s: %q\n", f.yamlKey, f.l.file)
			case f.l.inFile:
				fmt.Fprintf(&yaml, "%s: %s\n", f.yamlKey, f.l.file)
			}
			if f.l.inEnv {
				env[f.envKey] = f.l.env
			}
		}
		path := filepath.Join(dir, "config.yaml")
		if err := os.WriteFile(path, []byte(yaml.String()), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		defer setEnv(env)()

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() returned error for file %q env %v: %v", yaml.String(), env, err)
		}
		for _, f := range fields {
			if got, want := f.got(cfg), f.l.want(f.def); got != want {
				t.Fatalf("%s = %q, want %q (file %q, env %v)", f.yamlKey, got, want, yaml.String(), env)
			}
		}
	})
}

func TestProperty_AutoRefundLosersParsing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		raw := rapid.OneOf(
			rapid.SampledFrom([]string{"1", "t", "T", "true", "TRUE", "True", "0", "f", "F", "false", "FALSE", "False"}),
			rapid.StringMatching(`[a-z0-9]{1,6}`),
		).Draw(t, "raw")
		os.Setenv("AUTO_REFUND_LOSERS", raw)

		cfg, err := Load()
		want, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			if err == nil {
				t.Fatalf("Load() should reject AUTO_REFUND_LOSERS=%q", raw)
			}
			return
		}
		if err != nil {
			t.Fatalf("Load() returned error for AUTO_REFUND_LOSERS=%q: %v", raw, err)
		}
		if cfg.AutoRefundLosers != want {
			t.Fatalf("AutoRefundLosers = %v, want %v for %q", cfg.AutoRefundLosers, want, raw)
		}
	})
}

func TestProperty_ProgramIDParsing(t *testing.T) {
	for _, key := range []string{"AUCTION_PROGRAM_ID", "GATEWAY_PROGRAM_ID"} {
		t.Run(key, func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				unsetAllConfigEnv()
				defer unsetAllConfigEnv()

				want := pubkey.NewFromSeed(rapid.String().Draw(t, "seed"))
				os.Setenv(key, want.String())

				cfg, err := Load()
				if err != nil {
					t.Fatalf("Load() returned error for %s=%s: %v", key, want, err)
				}
				got := cfg.AuctionProgram
				if key == "GATEWAY_PROGRAM_ID" {
					got = cfg.GatewayProgram
				}
				if got != want {
					t.Fatalf("%s resolved to %s, want %s", key, got, want)
				}
			})

			rapid.Check(t, func(t *rapid.T) {
				unsetAllConfigEnv()
				defer unsetAllConfigEnv()

				// Characters outside the alphabet, or well-formed text that
				// decodes to fewer than 32 bytes.
				invalid := rapid.OneOf(
					rapid.StringMatching(`[1-9A-Za-z]{0,20}[0OIl][1-9A-Za-z]{0,20}`),
					rapid.StringMatching(`[`+base58Alphabet+`]{1,20}`),
				).Draw(t, "invalid")
				os.Setenv(key, invalid)

				if _, err := Load(); err == nil {
					t.Fatalf("Load() should reject %s=%q", key, invalid)
				}
			})
		})
	}
}

func TestProperty_BookDegreeBoundary(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		degree := rapid.IntRange(-10, 256).Draw(t, "degree")
		os.Setenv("BOOK_DEGREE", fmt.Sprintf("%d", degree))

		cfg, err := Load()
		if degree < 2 {
			if err == nil {
				t.Fatalf("Load() should reject BOOK_DEGREE=%d", degree)
			}
			return
		}
		if err != nil {
			t.Fatalf("Load() returned error for BOOK_DEGREE=%d: %v", degree, err)
		}
		if cfg.BookDegree != degree {
			t.Fatalf("BookDegree = %d, want %d", cfg.BookDegree, degree)
		}
	})
}
