package hotkey

import "testing"

func TestParseAccelerator(t *testing.T) {
	tests := []struct {
		in      string
		want    Accelerator
		wantErr bool
	}{
		{in: "Alt+Space", want: Accelerator{Mods: ModAlt, Key: "space"}},
		{in: "ctrl + shift + M", want: Accelerator{Mods: ModCtrl | ModShift, Key: "m"}},
		{in: "Cmd+Option+F5", want: Accelerator{Mods: ModSuper | ModAlt, Key: "f5"}},
		{in: "F9", want: Accelerator{Key: "f9"}},
		{in: "", wantErr: true},
		{in: "Alt+", wantErr: true},
		{in: "Alt+Shift", wantErr: true},
		{in: "Alt+Alt+X", wantErr: true},
		{in: "Q+Space", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAccelerator(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAcceleratorString(t *testing.T) {
	a := Accelerator{Mods: ModShift | ModCtrl, Key: "space"}
	if got := a.String(); got != "Ctrl+Shift+Space" {
		t.Fatalf("got %q", got)
	}
}
