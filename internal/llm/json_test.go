package llm

import "testing"

type rankPayload struct {
	ID   int    `json:"id"`
	Tier string `json:"tier"`
}

func TestParseJSONResponsePlain(t *testing.T) {
	var got []rankPayload
	err := ParseJSONResponse(`[{"id": 1, "tier": "critical"}]`, &got)
	if err != nil {
		t.Fatalf("ParseJSONResponse: %v", err)
	}
	if len(got) != 1 || got[0].Tier != "critical" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestParseJSONResponseCodeFence(t *testing.T) {
	response := "```json\n[{\"id\": 2, \"tier\": \"notable\"}]\n```"
	var got []rankPayload
	if err := ParseJSONResponse(response, &got); err != nil {
		t.Fatalf("ParseJSONResponse: %v", err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestParseJSONResponseSurroundingProse(t *testing.T) {
	response := "Here are the rankings:\n{\"id\": 3, \"tier\": \"related\"}\nLet me know if you need more."
	var got rankPayload
	if err := ParseJSONResponse(response, &got); err != nil {
		t.Fatalf("ParseJSONResponse: %v", err)
	}
	if got.Tier != "related" {
		t.Errorf("tier = %q, want related", got.Tier)
	}
}

func TestParseJSONResponseNoJSON(t *testing.T) {
	var got rankPayload
	if err := ParseJSONResponse("I cannot rank these articles.", &got); err == nil {
		t.Error("expected error for response without JSON")
	}
}
