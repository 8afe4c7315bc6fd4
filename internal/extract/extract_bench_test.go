package extract

import (
	"strings"
	"testing"

	"github.com/hyperifyio/headtail/internal/record"
)

func BenchmarkHeadTail_LargeStream(b *testing.B) {
	in := strings.Repeat("1001,ACME,2024-01-01,42.00\n", 100_000)
	b.SetBytes(int64(len(in)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sc := record.NewLineScanner(strings.NewReader(in))
		if _, err := HeadTail(sc, 100); err != nil {
			b.Fatal(err)
		}
	}
}
