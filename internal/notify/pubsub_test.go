package notify

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

func TestPubSub_NotifyPublishesJSONEvent(t *testing.T) {
	ctx := context.Background()

	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer client.Close()

	topic, err := client.CreateTopic(ctx, "map-version")
	require.NoError(t, err)

	notifier, err := NewPubSub(topic, nil)
	require.NoError(t, err)
	defer notifier.Stop()

	msg := watcher.Message{
		Kind:    watcher.MessageKindChange,
		Subject: "Map version changed: 2023 to 2024",
		Body:    "body",
		Date:    "2024-06-02",
		Change:  &watcher.ChangeRecord{CreatedAt: 10, FromVersion: "2023", ToVersion: "2024"},
	}
	require.NoError(t, notifier.Notify(ctx, msg))

	published := srv.Messages()
	require.Len(t, published, 1)
	require.Equal(t, "change", published[0].Attributes["kind"])
	require.Equal(t, "2024-06-02", published[0].Attributes["date"])

	var got watcher.Message
	require.NoError(t, json.Unmarshal(published[0].Data, &got))
	require.Equal(t, msg, got)
}

func TestPubSub_PublishToMissingTopicFails(t *testing.T) {
	ctx := context.Background()

	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer client.Close()

	notifier, err := NewPubSub(client.Topic("does-not-exist"), nil)
	require.NoError(t, err)
	defer notifier.Stop()

	err = notifier.Notify(ctx, watcher.Message{Kind: watcher.MessageKindFailure})
	var notifyErr *watcher.NotificationError
	require.ErrorAs(t, err, &notifyErr)
	require.Equal(t, "pubsub", notifyErr.Channel)
}

func TestNewPubSub_RequiresTopic(t *testing.T) {
	t.Parallel()

	_, err := NewPubSub(nil, nil)
	require.Error(t, err)
}
