package mongostore

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/cppla/socialnet/store"
	"github.com/cppla/socialnet/store/storetest"
)

// TestConformance runs the shared store suite against a live server and is skipped otherwise.
// Transactions need a replica set; a single-node one is enough:
//
//	docker run -d -p 27017:27017 mongo:7 --replSet rs0
//	docker exec <container> mongosh --eval 'rs.initiate()'
//	SOCIAL_TEST_MONGO_URI='mongodb://localhost:27017/?replicaSet=rs0&directConnection=true' go test ./store/mongostore/
//
// Set SOCIAL_TEST_MONGO_NO_TX=1 as well to cover the non-transactional path against a standalone server.
func TestConformance(t *testing.T) {
	uri := os.Getenv("SOCIAL_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SOCIAL_TEST_MONGO_URI not set")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetTimeout(10 * time.Second))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		name := "socialnet_test_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
		if len(name) > 60 {
			name = name[:60]
		}
		_ = client.Database(name).Drop(ctx)
		t.Cleanup(func() { _ = client.Database(name).Drop(context.Background()) })

		s, err := New(ctx, client, name, Options{DisableTransactions: os.Getenv("SOCIAL_TEST_MONGO_NO_TX") != ""})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return s
	})
}

func TestObjectIDHelpers(t *testing.T) {
	a, b := bson.NewObjectID(), bson.NewObjectID()
	got := objectIDs([]string{a.Hex(), "not-an-id", b.Hex()})
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("objectIDs = %v", got)
	}
	if hs := hexes(nil); hs == nil || len(hs) != 0 {
		t.Fatalf("hexes(nil) = %#v, want empty slice", hs)
	}
	if _, err := parseID("zzz"); err != store.ErrNotFound {
		t.Fatalf("parseID(bad) = %v", err)
	}
}

func TestWithTxDisabledRunsInline(t *testing.T) {
	s := &Store{useTx: false}
	ran := false
	err := s.withTx(context.Background(), func(context.Context) error {
		ran = true
		return errors.New("boom")
	})
	if !ran || err == nil || err.Error() != "boom" {
		t.Fatalf("withTx: ran=%v err=%v", ran, err)
	}
}

func TestMapErr(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	cases := []struct {
		in   error
		want error
	}{
		{nil, nil},
		{mongo.ErrNoDocuments, store.ErrNotFound},
		{dup, store.ErrDuplicate},
	}
	for _, tc := range cases {
		if got := mapErr(tc.in); !errors.Is(got, tc.want) && got != tc.want {
			t.Errorf("mapErr(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
