package operation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/roplat/hans/roboterr"
)

func TestSingleOperationManager(t *testing.T) {
	ctx := context.Background()
	som := SingleOperationManager{}

	t.Run("nested operation does not cancel parent", func(t *testing.T) {
		ctx1, close1 := som.New(ctx)
		defer close1()
		_, close2 := som.New(ctx1)
		close2()
		test.That(t, ctx1.Err(), test.ShouldBeNil)
		test.That(t, som.OpRunning(), test.ShouldBeTrue)
	})
	test.That(t, som.OpRunning(), test.ShouldBeFalse)

	t.Run("WaitForSuccess", func(t *testing.T) {
		count := int64(0)
		err := som.WaitForSuccess(ctx, time.Millisecond, 0, func(ctx context.Context) (bool, error) {
			return atomic.AddInt64(&count, 1) == 5, nil
		})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, count, test.ShouldEqual, int64(5))
		test.That(t, som.OpRunning(), test.ShouldBeFalse)
	})

	t.Run("test error stops the wait", func(t *testing.T) {
		boom := errors.New("boom")
		err := som.WaitForSuccess(ctx, time.Millisecond, 0, func(ctx context.Context) (bool, error) {
			return false, boom
		})
		test.That(t, err, test.ShouldEqual, boom)
	})

	t.Run("timeout", func(t *testing.T) {
		mock := clock.NewMock()
		timed := SingleOperationManager{Clock: mock}
		polls := 0
		err := timed.WaitForSuccess(ctx, time.Millisecond, 5*time.Second, func(ctx context.Context) (bool, error) {
			polls++
			mock.Add(time.Second)
			return false, nil
		})
		test.That(t, errors.Is(err, roboterr.ErrTimeout), test.ShouldBeTrue)
		test.That(t, polls, test.ShouldEqual, 5)
	})

	t.Run("cancelling from another caller", func(t *testing.T) {
		var wg sync.WaitGroup
		var waitErr error
		started := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			var once sync.Once
			waitErr = som.WaitForSuccess(context.Background(), time.Millisecond, 0, func(ctx context.Context) (bool, error) {
				once.Do(func() { close(started) })
				return false, nil
			})
		}()
		<-started
		som.CancelRunning(ctx)
		wg.Wait()
		test.That(t, errors.Is(waitErr, context.Canceled), test.ShouldBeTrue)
		test.That(t, roboterr.KindOf(waitErr), test.ShouldEqual, roboterr.KindTimeout)
	})

	t.Run("context deadline", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		err := som.WaitForSuccess(cctx, time.Millisecond, 0, func(ctx context.Context) (bool, error) {
			return false, nil
		})
		test.That(t, errors.Is(err, context.DeadlineExceeded), test.ShouldBeTrue)
		test.That(t, roboterr.KindOf(err), test.ShouldEqual, roboterr.KindTimeout)
	})
}
