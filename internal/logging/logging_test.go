package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		level   zapcore.Level
		wantErr bool
	}{
		{"defaults", Config{}, zapcore.InfoLevel, false},
		{"debug console", Config{Level: "debug", Format: "console"}, zapcore.DebugLevel, false},
		{"warn json", Config{Level: "warn", Format: "json"}, zapcore.WarnLevel, false},
		{"bad level", Config{Level: "loud"}, 0, true},
		{"bad format", Config{Format: "xml"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("New succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if !logger.Core().Enabled(tt.level) {
				t.Errorf("level %v is disabled", tt.level)
			}
			if tt.level > zapcore.DebugLevel && logger.Core().Enabled(tt.level-1) {
				t.Errorf("level %v is enabled", tt.level-1)
			}
		})
	}
}

func TestInstall(t *testing.T) {
	before := zap.L()
	restore, err := Install(Config{Level: "error"})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if zap.L() == before {
		t.Error("global logger was not replaced")
	}
	if zap.L().Core().Enabled(zapcore.InfoLevel) {
		t.Error("info is enabled on an error logger")
	}
	restore()
	if zap.L() != before {
		t.Error("global logger was not restored")
	}
}
