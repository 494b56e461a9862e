package session

import (
	"testing"

	"github.com/platewise/platewise/core"
)

// Interface compliance (compile-time assertion)
var _ core.SessionStore = (*InMemoryStore)(nil)

func testKey(id string) core.SessionKey {
	return core.SessionKey{App: "platewise", UserID: "user-1", ID: id}
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	store := NewInMemoryStore()
	key := testKey("session-1")

	first, err := store.GetOrCreate(key)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.ApplyDelta(key, map[string]interface{}{"profiling_summary": "vegan"}); err != nil {
		t.Fatal(err)
	}

	second, err := store.GetOrCreate(key)
	if err != nil {
		t.Fatal(err)
	}

	if first.Key != second.Key {
		t.Fatalf("keys diverged: %v vs %v", first.Key, second.Key)
	}
	if v, ok := second.GetState("profiling_summary"); !ok || v != "vegan" {
		t.Fatalf("expected persisted state visible on second GetOrCreate, got %v %v", v, ok)
	}

	third, err := store.GetOrCreate(key)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := third.GetState("profiling_summary"); v != "vegan" {
		t.Fatalf("state maps not identical across consecutive calls: %v", v)
	}
}

func TestCreate_DuplicateFails(t *testing.T) {
	store := NewInMemoryStore()
	key := testKey("session-1")

	if _, err := store.Create(key); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(key); err == nil {
		t.Fatal("expected duplicate create to fail")
	}
}

func TestGet_MissingSessionFails(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Get(testKey("missing"))
	if err == nil {
		t.Fatal("expected error for missing session")
	}

	sessErr, ok := err.(*core.SessionError)
	if !ok {
		t.Fatalf("expected *core.SessionError, got %T", err)
	}
	if sessErr.Op != "get" {
		t.Fatalf("unexpected op: %s", sessErr.Op)
	}
}

func TestSameSessionIDDistinctUsers(t *testing.T) {
	store := NewInMemoryStore()
	keyA := core.SessionKey{App: "platewise", UserID: "alice", ID: "shared"}
	keyB := core.SessionKey{App: "platewise", UserID: "bob", ID: "shared"}

	if _, err := store.GetOrCreate(keyA); err != nil {
		t.Fatal(err)
	}
	if err := store.ApplyDelta(keyA, map[string]interface{}{"meal_plan": "pasta"}); err != nil {
		t.Fatal(err)
	}

	sessB, err := store.GetOrCreate(keyB)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sessB.GetState("meal_plan"); ok {
		t.Fatal("state leaked between users sharing a session id")
	}
}

func TestAppendEvent_RequiresExistingSession(t *testing.T) {
	store := NewInMemoryStore()
	key := testKey("session-1")

	if err := store.AppendEvent(key, core.NewUserMessageEvent("run-1", "hello")); err == nil {
		t.Fatal("expected error appending to missing session")
	}

	if _, err := store.Create(key); err != nil {
		t.Fatal(err)
	}
	if err := store.AppendEvent(key, core.NewUserMessageEvent("run-1", "hello")); err != nil {
		t.Fatal(err)
	}

	sess, err := store.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.GetEvents()) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sess.GetEvents()))
	}
}
