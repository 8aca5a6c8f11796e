package cemetery

import (
	"errors"
	"testing"
)

func TestDeadAssets(t *testing.T) {
	tests := []struct {
		name         string
		total, alive int
		want         int
		wantErr      bool
	}{
		{name: "empty", total: 0, alive: 0, want: 0},
		{name: "mixed", total: 10, alive: 4, want: 6},
		{name: "all alive", total: 3, alive: 3, want: 0},
		{name: "alive exceeds total", total: 2, alive: 5, wantErr: true},
		{name: "negative", total: -1, alive: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := deadAssets(tt.total, tt.alive)
			if tt.wantErr {
				if !errors.Is(err, ErrDataIntegrity) {
					t.Fatalf("deadAssets(%d, %d) error = %v, want ErrDataIntegrity", tt.total, tt.alive, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("deadAssets() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("deadAssets(%d, %d) = %d, want %d", tt.total, tt.alive, got, tt.want)
			}
		})
	}
}

func TestUpsertTombstone(t *testing.T) {
	var list []*Tombstone
	for _, id := range []string{"a", "b", "a"} {
		list = upsertTombstone(list, &Tombstone{ID: id, Placeholder: true})
	}
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("upsertTombstone() = %v, want [a b]", list)
	}
	if list[0].Placeholder {
		t.Error("stored tombstone kept the placeholder flag")
	}
}
