package redis

import (
	"testing"

	"github.com/visionkart/storefront-backend/pkg/config"
)

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	t.Parallel()

	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address is set")
	}
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	t.Parallel()

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://:pass@localhost:6380/2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6380" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
}

func TestCartKeyScoping(t *testing.T) {
	t.Parallel()

	c := &Client{}
	if got := c.CartKey("Jane.Doe@Example.com "); got != "vk:cart:jane.doe@example.com" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := c.CartKey(""); got != "vk:cart:anonymous" {
		t.Fatalf("unexpected anonymous key %q", got)
	}
}

func TestCheckoutSessionKey(t *testing.T) {
	t.Parallel()

	c := &Client{}
	if got := c.CheckoutSessionKey(); got != "vk:checkout:session" {
		t.Fatalf("unexpected key %q", got)
	}
}
