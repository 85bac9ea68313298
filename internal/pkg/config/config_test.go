package config_test

import (
	"strings"
	"testing"

	"github.com/mvarga/waylog/internal/pkg/config"
)

func TestLoad_WheelZoomSignDefault(t *testing.T) {
	cfg, err := config.Load("waylog-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Map.WheelZoomSign != 1 {
		t.Errorf("expected default wheel_zoom_sign 1, got %d", cfg.Map.WheelZoomSign)
	}
}

func TestLoad_WheelZoomSignInvertedFromEnv(t *testing.T) {
	t.Setenv("WAYLOG_MAP_WHEEL_ZOOM_SIGN", "-1")

	cfg, err := config.Load("waylog-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Map.WheelZoomSign != -1 {
		t.Errorf("expected wheel_zoom_sign -1 from env, got %d", cfg.Map.WheelZoomSign)
	}
}

func TestLoad_WheelZoomSignRejectsOtherValues(t *testing.T) {
	t.Setenv("WAYLOG_MAP_WHEEL_ZOOM_SIGN", "2")

	_, err := config.Load("waylog-test")
	if err == nil {
		t.Fatal("expected validation error for wheel_zoom_sign 2")
	}
	if !strings.Contains(err.Error(), "wheel_zoom_sign") {
		t.Errorf("expected wheel_zoom_sign in error, got %v", err)
	}
}
