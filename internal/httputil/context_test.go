package httputil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestWithUserID(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/threads", nil)
	r = WithUserID(r, "user-123")

	if got := GetUserID(r); got != "user-123" {
		t.Errorf("GetUserID() = %q", got)
	}

	hashed := GetHashedUserID(r)
	if hashed == "" || hashed == "user-123" {
		t.Errorf("GetHashedUserID() = %q, want hex digest", hashed)
	}
	if hashed != HashUserID("user-123") {
		t.Error("context hash disagrees with HashUserID")
	}
	if got := HashedUserIDFromContext(r.Context()); got != hashed {
		t.Errorf("HashedUserIDFromContext() = %q", got)
	}
}

func TestHashUserID(t *testing.T) {
	a := HashUserID("user-a")
	b := HashUserID("user-b")
	if a == b {
		t.Error("distinct users hash identically")
	}
	if a != HashUserID("user-a") {
		t.Error("hash is not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}

func TestOptionalString(t *testing.T) {
	type patch struct {
		PersonaID OptionalString `json:"persona_id"`
	}

	t.Run("absent field", func(t *testing.T) {
		var p patch
		if err := json.Unmarshal([]byte(`{}`), &p); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if p.PersonaID.Present {
			t.Error("absent field reported as present")
		}
	})

	t.Run("null clears", func(t *testing.T) {
		var p patch
		if err := json.Unmarshal([]byte(`{"persona_id":null}`), &p); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !p.PersonaID.Present || p.PersonaID.Value != nil {
			t.Errorf("null field = %+v", p.PersonaID)
		}
	})

	t.Run("value set", func(t *testing.T) {
		var p patch
		if err := json.Unmarshal([]byte(`{"persona_id":"persona-1"}`), &p); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !p.PersonaID.Present || p.PersonaID.Value == nil || *p.PersonaID.Value != "persona-1" {
			t.Errorf("field = %+v", p.PersonaID)
		}
	})
}
