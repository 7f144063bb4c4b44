package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultGameValidates(t *testing.T) {
	if err := DefaultGame().Validate(); err != nil {
		t.Fatalf("default game: %v", err)
	}
}

func TestValidateBoosterReduction(t *testing.T) {
	cases := []struct {
		name    string
		step    time.Duration
		max     time.Duration
		wantErr string
	}{
		{"whole steps", 2 * time.Hour, 12 * time.Hour, ""},
		{"no boosting", 2 * time.Hour, 0, ""},
		{"partial last step", 5 * time.Hour, 12 * time.Hour, "not a multiple"},
		{"zero step", 0, 12 * time.Hour, "booster_reduction must be positive"},
	}
	for _, tc := range cases {
		g := DefaultGame()
		g.BoosterReduction = tc.step
		potato := g.Crops["potato"]
		potato.MaxBoosterReduction = tc.max
		g.Crops["potato"] = potato

		err := g.Validate()
		if tc.wantErr == "" {
			if err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Fatalf("%s: err = %v, want %q", tc.name, err, tc.wantErr)
		}
	}
}

func TestLoadGameOverlay(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return p
	}

	g, err := LoadGame(write("ok.yaml", "ad_watch_water: 3\nad_watch_cooldown: 90s\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if g.AdWatchWater != 3 || g.AdWatchCooldown != 90*time.Second || g.BoosterReduction != 2*time.Hour {
		t.Fatalf("overlay = water %d cooldown %s step %s", g.AdWatchWater, g.AdWatchCooldown, g.BoosterReduction)
	}

	if _, err := LoadGame(write("step.yaml", "booster_reduction: 5h\n")); err == nil {
		t.Fatalf("booster step that leaves an unusable remainder was accepted")
	}
}
