package pagination

import "testing"

func TestOffsetFor(t *testing.T) {
	tests := []struct {
		page, pageSize, want int
	}{
		{1, 10, 0},
		{2, 10, 10},
		{5, 10, 40},
		{0, 10, 0},
		{3, 25, 50},
	}

	for _, tt := range tests {
		if got := OffsetFor(tt.page, tt.pageSize); got != tt.want {
			t.Errorf("OffsetFor(%d, %d) = %d, want %d", tt.page, tt.pageSize, got, tt.want)
		}
	}
}

func TestNextOffset(t *testing.T) {
	if got := NextOffset(1, 10); got != 10 {
		t.Errorf("NextOffset(1, 10) = %d, want 10", got)
	}
	if got := NextOffset(3, 10); got != 30 {
		t.Errorf("NextOffset(3, 10) = %d, want 30", got)
	}
}

func TestHasMore(t *testing.T) {
	tests := []struct {
		got  int
		want bool
	}{
		{10, true},
		{11, true},
		{9, false},
		{0, false},
	}

	for _, tt := range tests {
		if HasMore(tt.got, 10) != tt.want {
			t.Errorf("HasMore(%d, 10) = %v, want %v", tt.got, !tt.want, tt.want)
		}
	}
}
