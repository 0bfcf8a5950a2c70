package pagination

import "testing"

func BenchmarkNewControls(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = NewControls(i%500+1, 25, 12500, 500)
	}
}

func BenchmarkMarkersWide(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Markers(250, 500, ViewportWide)
	}
}
