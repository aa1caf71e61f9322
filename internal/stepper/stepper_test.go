package stepper

import (
	"errors"
	"testing"
)

func TestNewKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		source, target int
		want           Kind
		wantErr        error
	}{
		{name: "mono passthrough", source: 1, target: 1, want: OneToOne},
		{name: "stereo passthrough", source: 2, target: 2, want: OneToOne},
		{name: "mono to stereo", source: 1, target: 2, want: UpChannel},
		{name: "stereo to 5.1", source: 2, target: 6, want: UpChannel},
		{name: "stereo to mono", source: 2, target: 1, wantErr: ErrDownChannelUnsupported},
		{name: "zero source", source: 0, target: 2, wantErr: ErrInvalidChannelCount},
		{name: "negative target", source: 1, target: -1, wantErr: ErrInvalidChannelCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := New(tt.source, tt.target)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New(%d, %d) error = %v, want %v", tt.source, tt.target, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%d, %d) error = %v", tt.source, tt.target, err)
			}
			if s.Kind() != tt.want {
				t.Errorf("Kind() = %v, want %v", s.Kind(), tt.want)
			}
		})
	}
}

func TestOneToOneAdvance(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3} {
		s, err := New(n, n)
		if err != nil {
			t.Fatalf("New(%d, %d) error = %v", n, n, err)
		}

		for k := 0; k < 50; k++ {
			if got, want := s.ChannelIndex(), k%n; got != want {
				t.Fatalf("n=%d k=%d: ChannelIndex() = %d, want %d", n, k, got, want)
			}
			if got, want := s.SampleIndex(), k/n; got != want {
				t.Fatalf("n=%d k=%d: SampleIndex() = %d, want %d", n, k, got, want)
			}
			if got := s.SamplesAdvanced(); got != k {
				t.Fatalf("n=%d k=%d: SamplesAdvanced() = %d", n, k, got)
			}
			s.Advance()
		}
	}
}

func TestUpChannelOneToTwo(t *testing.T) {
	t.Parallel()

	s, err := New(1, 2)
	if err != nil {
		t.Fatalf("New(1, 2) error = %v", err)
	}

	// each source sample is read twice before moving on
	want := []int{0, 0, 1, 1, 2, 2, 3, 3}
	for k, sample := range want {
		if s.ChannelIndex() != 0 {
			t.Errorf("k=%d: ChannelIndex() = %d, want 0", k, s.ChannelIndex())
		}
		if s.SampleIndex() != sample {
			t.Errorf("k=%d: SampleIndex() = %d, want %d", k, s.SampleIndex(), sample)
		}
		s.Advance()
	}
}

func TestUpChannelWiderTargets(t *testing.T) {
	t.Parallel()

	type position struct{ channel, sample int }

	tests := []struct {
		name           string
		source, target int
		want           []position
	}{
		{
			name:   "mono to quad",
			source: 1, target: 4,
			want: []position{
				{0, 0}, {0, 0}, {0, 0}, {0, 0},
				{0, 1}, {0, 1}, {0, 1}, {0, 1},
				{0, 2},
			},
		},
		{
			// source channels cycle independently of the target frame
			name:   "stereo to three",
			source: 2, target: 3,
			want: []position{
				{0, 0}, {1, 0}, {0, 0},
				{1, 1}, {0, 1}, {1, 1},
				{0, 2}, {1, 2}, {0, 2},
				{1, 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := New(tt.source, tt.target)
			if err != nil {
				t.Fatalf("New(%d, %d) error = %v", tt.source, tt.target, err)
			}
			if s.Kind() != UpChannel {
				t.Fatalf("Kind() = %v, want %v", s.Kind(), UpChannel)
			}

			for k, want := range tt.want {
				got := position{s.ChannelIndex(), s.SampleIndex()}
				if got != want {
					t.Errorf("k=%d: (channel, sample) = %v, want %v", k, got, want)
				}
				s.Advance()
			}
		})
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct{ source, target int }{{2, 2}, {1, 2}} {
		s, err := New(tt.source, tt.target)
		if err != nil {
			t.Fatalf("New error = %v", err)
		}
		for range 7 {
			s.Advance()
		}

		s.Reset()

		if s.ChannelIndex() != 0 || s.SampleIndex() != 0 || s.SamplesAdvanced() != 0 {
			t.Errorf("%d->%d after Reset: channel=%d sample=%d advanced=%d, want all zero",
				tt.source, tt.target, s.ChannelIndex(), s.SampleIndex(), s.SamplesAdvanced())
		}

		// capacities survive a reset
		s.Advance()
		if tt.source == tt.target && s.ChannelIndex() != 1 {
			t.Errorf("%d->%d: ChannelIndex() after one advance = %d, want 1", tt.source, tt.target, s.ChannelIndex())
		}
	}
}
