package procstream

import (
	"context"
	"fmt"
	"runtime"
	"testing"
)

func BenchmarkStream(b *testing.B) {
	for _, size := range []int{100, 10000} {
		items := make([]int, size)
		for i := range size {
			items[i] = i
		}

		b.Run(fmt.Sprintf("Map/Size=%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				ms := Map(FromSlice(items), func(ctx context.Context, v int) (int, error) {
					return v * 2, nil
				})
				_, _ = ms.ToSlice(context.Background())
			}
		})

		b.Run(fmt.Sprintf("FilterTake/Size=%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				s := FromSlice(items).
					Filter(func(v int) bool { return v%2 == 0 }).
					Take(size / 2)
				_, _ = s.ToSlice(context.Background())
			}
		})
	}
}

func BenchmarkLaunch(b *testing.B) {
	if runtime.GOOS == "windows" {
		b.Skip("needs /bin/sh")
	}
	ctx := context.Background()
	runner := NewRunner()

	b.Run("Exit", func(b *testing.B) {
		spec := NewLaunchSpec("/bin/sh", "-c", "exit 0")
		for i := 0; i < b.N; i++ {
			if _, err := runner.Launch(ctx, spec, nil).ToSlice(ctx); err != nil {
				b.Fatal(err)
			}
		}
	})

	for _, size := range []int{64 << 10, 4 << 20} {
		b.Run(fmt.Sprintf("Output/Bytes=%d", size), func(b *testing.B) {
			spec := NewLaunchSpec("/bin/sh", "-c", fmt.Sprintf("head -c %d /dev/zero", size))
			b.SetBytes(int64(size))
			for i := 0; i < b.N; i++ {
				if _, err := JustOutput(runner.Launch(ctx, spec, nil)).Count(ctx); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkEventChannel(b *testing.B) {
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		ch := newEventChannel(ctx, outputSources, DefaultEventBuffer)
		for src := range outputSources {
			go func() {
				defer ch.done(src)
				for range 100 {
					_ = ch.emit(ctx, src, StdOutEvent(nil))
				}
			}()
		}
		for {
			_, ok, _ := ch.next(ctx)
			if !ok {
				break
			}
		}
	}
}
