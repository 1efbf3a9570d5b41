package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Latest(t *testing.T) {
	t.Run("empty value reports nothing published", func(t *testing.T) {
		v := NewValue[int]()

		item, ok := v.Latest()
		assert.False(t, ok)
		assert.Zero(t, item)
	})

	t.Run("returns the most recently published item", func(t *testing.T) {
		v := NewValue[int]()

		v.Publish(1)
		v.Publish(2)
		v.Publish(3)

		item, ok := v.Latest()
		assert.True(t, ok)
		assert.Equal(t, 3, item)
	})

	t.Run("latest survives close", func(t *testing.T) {
		v := NewValue[string]()
		v.Publish("final")
		v.Close()

		item, ok := v.Latest()
		assert.True(t, ok)
		assert.Equal(t, "final", item)
	})
}

func TestValue_Subscribe(t *testing.T) {
	t.Run("replays the latest item to a new subscriber", func(t *testing.T) {
		v := NewValue[int]()
		v.Publish(42)

		ch, unsub := v.Subscribe()
		defer unsub()

		select {
		case item := <-ch:
			assert.Equal(t, 42, item)
		case <-time.After(time.Second):
			t.Fatal("expected replay of latest item")
		}
	})

	t.Run("does not replay before the first publish", func(t *testing.T) {
		v := NewValue[int]()

		ch, unsub := v.Subscribe()
		defer unsub()

		select {
		case item := <-ch:
			t.Fatalf("unexpected item %v before first publish", item)
		default:
		}
	})

	t.Run("delivers subsequent publishes", func(t *testing.T) {
		v := NewValue[int]()

		ch, unsub := v.Subscribe()
		defer unsub()

		v.Publish(7)

		select {
		case item := <-ch:
			assert.Equal(t, 7, item)
		case <-time.After(time.Second):
			t.Fatal("expected published item")
		}
	})

	t.Run("conflates when the observer falls behind", func(t *testing.T) {
		v := NewValue[int]()

		ch, unsub := v.Subscribe()
		defer unsub()

		// Nobody is receiving: only the newest item must remain buffered.
		v.Publish(1)
		v.Publish(2)
		v.Publish(3)

		select {
		case item := <-ch:
			assert.Equal(t, 3, item)
		case <-time.After(time.Second):
			t.Fatal("expected conflated latest item")
		}

		select {
		case item, ok := <-ch:
			if ok {
				t.Fatalf("expected no further items, got %v", item)
			}
		default:
		}
	})

	t.Run("fans out to multiple subscribers", func(t *testing.T) {
		v := NewValue[int]()

		ch1, unsub1 := v.Subscribe()
		defer unsub1()
		ch2, unsub2 := v.Subscribe()
		defer unsub2()

		v.Publish(9)

		for _, ch := range []<-chan int{ch1, ch2} {
			select {
			case item := <-ch:
				assert.Equal(t, 9, item)
			case <-time.After(time.Second):
				t.Fatal("expected fan-out to every subscriber")
			}
		}
	})

	t.Run("unsubscribe closes the channel and stops delivery", func(t *testing.T) {
		v := NewValue[int]()

		ch, unsub := v.Subscribe()
		unsub()

		_, ok := <-ch
		assert.False(t, ok, "channel should be closed after unsubscribe")

		// Publishing after unsubscribe must not panic.
		require.NotPanics(t, func() { v.Publish(1) })
	})

	t.Run("unsubscribe is idempotent", func(t *testing.T) {
		v := NewValue[int]()

		_, unsub := v.Subscribe()
		require.NotPanics(t, func() {
			unsub()
			unsub()
		})
	})
}

func TestValue_Close(t *testing.T) {
	t.Run("closes all subscriber channels", func(t *testing.T) {
		v := NewValue[int]()

		ch, unsub := v.Subscribe()
		defer unsub()

		v.Close()

		_, ok := <-ch
		assert.False(t, ok, "channel should be closed after Close")
	})

	t.Run("publish after close is a no-op", func(t *testing.T) {
		v := NewValue[int]()
		v.Publish(1)
		v.Close()

		require.NotPanics(t, func() { v.Publish(2) })

		item, ok := v.Latest()
		assert.True(t, ok)
		assert.Equal(t, 1, item)
	})

	t.Run("subscribe after close returns a closed channel", func(t *testing.T) {
		v := NewValue[int]()
		v.Close()

		ch, unsub := v.Subscribe()
		defer unsub()

		_, ok := <-ch
		assert.False(t, ok)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		v := NewValue[int]()
		require.NotPanics(t, func() {
			v.Close()
			v.Close()
		})
	})
}
