package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"usersapi/internal/core/port"
)

func startRedis(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("redis container tests skipped in short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	t.Cleanup(func() { container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}

	mapped, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatal(err)
	}

	return fmt.Sprintf("redis://%s:%s/0", host, mapped.Port())
}

func TestRedisCache_RoundTripAndPrefixDelete(t *testing.T) {
	RegisterTestingT(t)

	url := startRedis(t)
	ctx := context.Background()

	c, err := NewCache(ctx, url, nil)
	Expect(err).ToNot(HaveOccurred())
	defer c.Close()

	Expect(c.Set(ctx, "users:list:page=1", []byte("1"), time.Minute)).To(Succeed())
	Expect(c.Set(ctx, "users:list:page=2", []byte("2"), time.Minute)).To(Succeed())
	Expect(c.Set(ctx, "other", []byte("3"), time.Minute)).To(Succeed())

	value, err := c.Get(ctx, "users:list:page=1")
	Expect(err).ToNot(HaveOccurred())
	Expect(string(value)).To(Equal("1"))

	Expect(c.DeleteByPrefix(ctx, "users:list:")).To(Succeed())

	_, err = c.Get(ctx, "users:list:page=2")
	Expect(err).To(MatchError(port.ErrCacheMiss))

	_, err = c.Get(ctx, "other")
	Expect(err).ToNot(HaveOccurred())
}

func TestRedisCache_BadURL(t *testing.T) {
	RegisterTestingT(t)

	_, err := NewCache(context.Background(), "not-a-url", nil)
	Expect(err).To(MatchError(ContainSubstring("parse Redis URL")))
}
