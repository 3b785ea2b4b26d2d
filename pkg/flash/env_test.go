package flash

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEnvFromList(t *testing.T) {
	got := EnvFromList([]string{"A=1", "B=x=y", "EMPTY=", "NOEQUALS", "=bad", "A=2"})
	want := Env{"A": "2", "B": "x=y", "EMPTY": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("EnvFromList mismatch (-want +got):\n%s", diff)
	}
}

func TestExpand(t *testing.T) {
	env := Env{
		"TARGET_DIR": "/build/target",
		"BOARD":      "qemu",
	}

	tests := []struct {
		name   string
		path   string
		want   string
		wantOK bool
	}{
		{"no variables", "blob.bin", "blob.bin", true},
		{"single variable", "$(TARGET_DIR)/blob.bin", "/build/target/blob.bin", true},
		{"two variables", "$(TARGET_DIR)/$(BOARD).bin", "/build/target/qemu.bin", true},
		{"repeated variable", "$(BOARD)-$(BOARD)", "qemu-qemu", true},
		{"bare set variable", "$(BOARD)", "qemu", true},
		{"bare unset variable", "$(PAYLOAD)", "$(PAYLOAD)", false},
		{"unset variable inside path", "$(PAYLOAD)/x.bin", "$(PAYLOAD)/x.bin", true},
		{"shell syntax untouched", "${BOARD}", "${BOARD}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Expand(tt.path, env)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Expand(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExpandIsPure(t *testing.T) {
	env := Env{"X": "$(Y)", "Y": "done"}
	first, _ := Expand("$(X)", env)
	second, _ := Expand("$(X)", env)
	if first != second {
		t.Errorf("Expand not deterministic: %q vs %q", first, second)
	}
	if len(env) != 2 || env["X"] != "$(Y)" {
		t.Errorf("Expand modified env: %v", env)
	}
}
