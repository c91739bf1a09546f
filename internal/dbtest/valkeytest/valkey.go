package valkeytest

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/valkey-io/valkey-go"

	valkeycontainer "github.com/testcontainers/testcontainers-go/modules/valkey"
	slogctx "github.com/veqryn/slog-context"
)

const (
	// StaleSlot holds a valid record whose metadata dates from StaleTime.
	StaleSlot = "stale-slot"
	// CorruptSlot holds a payload with unreadable metadata.
	CorruptSlot = "corrupt-slot"

	stalePayload = `{"cardIds":[0,1,0,1],"cardStates":[{"isFlipped":true,"isMatched":true},{"isFlipped":false,"isMatched":false},{"isFlipped":true,"isMatched":true},{"isFlipped":false,"isMatched":false}],"score":100,"combo":1,"rows":2,"columns":2,"matchedPairs":1}`
)

// StaleTime is the metadata update time of StaleSlot.
var StaleTime = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Start initialises a ValKey instance and returns a client, its port, and a termination function.
func Start(ctx context.Context) (valkey.Client, nat.Port, func(ctx context.Context)) {
	valkeyContainer, err := valkeycontainer.Run(ctx, "valkey/valkey:8-alpine")
	if err != nil {
		slogctx.Error(ctx, "Failed to start ValKey container", "error", err)
		panic(err)
	}

	port, err := valkeyContainer.MappedPort(ctx, nat.Port("6379"))
	if err != nil {
		slogctx.Error(ctx, "Failed to map a port for the ValKey container", "error", err)
		panic(err)
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{net.JoinHostPort("localhost", port.Port())},
	})
	if err != nil {
		slogctx.Error(ctx, "Failed to initialise a ValKey client", "error", err)
		panic(err)
	}

	terminate := func(ctx context.Context) {
		client.Close()
		if err := valkeyContainer.Terminate(ctx); err != nil {
			slogctx.Error(ctx, "Failed to terminate ValKey container", "error", err)
			panic(err)
		}
	}

	return client, port, terminate
}

// Key builds the key a save repository with the given prefix uses for a slot.
// objectType is either "save" or "meta".
func Key(prefix, objectType, slot string) string {
	return fmt.Sprintf("%s:%s:%s", prefix, objectType, slot)
}

// Set writes a raw value, bypassing the repository.
func Set(ctx context.Context, client valkey.Client, key, value string) error {
	return client.Do(ctx, client.B().Set().Key(key).Value(value).Build()).Error()
}

// Seed writes StaleSlot and CorruptSlot under prefix.
func Seed(ctx context.Context, client valkey.Client, prefix string) error {
	staleMeta := fmt.Sprintf(`{"format":"json","updatedAt":%q}`, StaleTime.Format(time.RFC3339))

	for key, value := range map[string]string{
		Key(prefix, "save", StaleSlot):   stalePayload,
		Key(prefix, "meta", StaleSlot):   staleMeta,
		Key(prefix, "save", CorruptSlot): `{"cardIds":[0]}`,
		Key(prefix, "meta", CorruptSlot): `not json`,
	} {
		if err := Set(ctx, client, key, value); err != nil {
			return fmt.Errorf("seeding %s: %w", key, err)
		}
	}

	return nil
}
