package timeouts

import (
	"context"
	"testing"
	"time"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: 7 * time.Second})
	if Short() != 7*time.Second {
		t.Errorf("Short() = %v, want 7s", Short())
	}
	if Medium() != DefaultMedium {
		t.Errorf("Medium() = %v, want default %v", Medium(), DefaultMedium)
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Cleanup(Reset)
	t.Setenv("COLLEGEPORTAL_TIMEOUT_BATCH", "5m")
	t.Setenv("COLLEGEPORTAL_TIMEOUT_PING", "bogus")
	t.Setenv("COLLEGEPORTAL_TIMEOUT_LONG", "-1s")

	if n := ConfigureFromEnv(); n != 1 {
		t.Errorf("ConfigureFromEnv() = %d, want 1", n)
	}
	c := Current()
	if c.Batch != 5*time.Minute {
		t.Errorf("Batch = %v, want 5m", c.Batch)
	}
	if c.Ping != DefaultPing || c.Long != DefaultLong {
		t.Errorf("invalid values should keep defaults, got %+v", c)
	}
}

func TestWithTimeout_NilLogger(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, nil, "test")
	<-ctx.Done()
	cancel()
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("ctx.Err() = %v", ctx.Err())
	}
}
