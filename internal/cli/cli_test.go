package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionSkipsConfig(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--config", "/nonexistent/config.yaml"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version 不应读取配置: %v", err)
	}
	if !strings.HasPrefix(out.String(), "curtailwatch ") {
		t.Fatalf("版本输出不正确: %q", out.String())
	}
}

func TestCommandTree(t *testing.T) {
	want := []string{"analyze", "export", "fetch-irradiance", "stations", "show", "watch", "reanalyze", "simulate-alert", "serve", "migrate", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("缺少子命令 %s: %v", name, err)
		}
	}
	for _, sub := range []string{"import", "list", "export"} {
		cmd, _, err := rootCmd.Find([]string{"stations", sub})
		if err != nil || cmd.Name() != sub {
			t.Fatalf("缺少 stations %s: %v", sub, err)
		}
	}
}

func TestAnalysisFlagsOnlyExplicitOverrides(t *testing.T) {
	if err := analyzeCmd.ParseFlags([]string{"--diff-threshold", "5", "--granularity", "day"}); err != nil {
		t.Fatalf("解析参数失败: %v", err)
	}
	o := analyzeFlags.overrides(analyzeCmd)
	if o.DiffThreshold == nil || *o.DiffThreshold != 5 {
		t.Fatalf("diff-threshold 应被覆盖: %+v", o)
	}
	if o.IrradianceThreshold != nil || o.Overlay != nil {
		t.Fatalf("未设置的参数不应覆盖配置: %+v", o)
	}
	if o.Granularity != "day" {
		t.Fatalf("granularity 不正确: %q", o.Granularity)
	}
}
