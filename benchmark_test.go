package repeat_gpt

import (
	"io"
	"strings"
	"testing"
	"time"
)

func benchmarkUnits(numPosts int) []string {
	posts := make([]string, numPosts)
	for idx := range posts {
		posts[idx] = blogPost
	}
	units, _ := SplitUnits(posts, UnitLine)
	return units
}

func BenchmarkEncoder_StreamingEncode(b *testing.B) {
	b.StopTimer()
	encoder := gpt2(b)
	corpus := strings.Repeat(blogPost+"\n", 1000)

	start := time.Now()
	tokenCount := 0
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		nextTokens, _ := encoder.StreamingEncode(strings.NewReader(corpus))
		for {
			tokens := nextTokens()
			if tokens == nil {
				break
			}
			tokenCount += len(*tokens)
		}
	}
	b.StopTimer()
	elapsed := time.Since(start)
	b.ReportMetric(float64(tokenCount)/elapsed.Seconds(), "tokens/sec")
	b.ReportMetric(float64(len(corpus)*b.N)/elapsed.Seconds(), "bytes/sec")
}

func BenchmarkUnitsReader(b *testing.B) {
	b.StopTimer()
	units := benchmarkUnits(10000)
	train, _, _ := TrainTestSplit(len(units), DefaultValFraction,
		DefaultSplitSeed)
	numBytes := int64(0)
	start := time.Now()
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		n, _ := io.Copy(io.Discard, NewUnitsReader(units, train))
		numBytes += n
	}
	b.StopTimer()
	elapsed := time.Since(start)
	b.ReportMetric(float64(numBytes)/elapsed.Seconds(), "bytes/sec")
}

func BenchmarkTrainTestSplit(b *testing.B) {
	for i := 0; i < b.N; i++ {
		TrainTestSplit(1000000, DefaultValFraction, DefaultSplitSeed)
	}
}
