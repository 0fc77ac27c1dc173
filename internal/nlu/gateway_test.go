package nlu

import (
	"context"
	"errors"
	"testing"

	"github.com/mwrobel/domo/internal/llm"
	"github.com/mwrobel/domo/internal/selector"
)

type fakeDispatcher struct {
	responses []string
	err       error
	requests  []llm.CompletionRequest
}

func (d *fakeDispatcher) ChatWithFallback(ctx context.Context, req llm.CompletionRequest, opts selector.Options) selector.Result {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return selector.Result{Err: d.err}
	}
	content := ""
	if len(d.responses) > 0 {
		content = d.responses[0]
		d.responses = d.responses[1:]
	}
	return selector.Result{Response: llm.CompletionResponse{Content: content}}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{"bare object", `{"intencja": "CHAT"}`, `{"intencja": "CHAT"}`, true},
		{"wrapped in prose", `Oto wynik: {"intencja": "CHAT"} koniec.`, `{"intencja": "CHAT"}`, true},
		{"markdown fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`, true},
		{"no object", "nie mam pojęcia", "", false},
		{"brace order", "} {", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.content)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, %t; want %q, %t", tt.content, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestExtractIntent(t *testing.T) {
	d := &fakeDispatcher{responses: []string{`{"intencja": "DODAJ_ZAKUPY", "pewnosc": 0.92}`}}
	g := NewGateway(d)

	intent, conf := g.ExtractIntent(context.Background(), "dodaj paragon z żabki")
	if intent != IntentAddPurchase {
		t.Errorf("expected DODAJ_ZAKUPY, got %q", intent)
	}
	if conf != 0.92 {
		t.Errorf("expected confidence 0.92, got %v", conf)
	}
}

func TestExtractIntentLowConfidenceIsUnknown(t *testing.T) {
	d := &fakeDispatcher{responses: []string{`{"intencja": "DELETE_ITEM", "pewnosc": 0.3}`}}
	g := NewGateway(d)

	intent, _ := g.ExtractIntent(context.Background(), "hmm może coś usuń")
	if intent != IntentUnknown {
		t.Errorf("expected UNKNOWN below threshold, got %q", intent)
	}
}

func TestExtractIntentUnparseableIsUnknown(t *testing.T) {
	d := &fakeDispatcher{responses: []string{"przepraszam, nie wiem"}}
	g := NewGateway(d)

	intent, conf := g.ExtractIntent(context.Background(), "cokolwiek")
	if intent != IntentUnknown || conf != 0 {
		t.Errorf("expected UNKNOWN/0, got %q/%v", intent, conf)
	}
}

func TestExtractIntentProviderFailureIsUnknown(t *testing.T) {
	d := &fakeDispatcher{err: errors.New("backend down")}
	g := NewGateway(d)

	intent, _ := g.ExtractIntent(context.Background(), "cześć")
	if intent != IntentUnknown {
		t.Errorf("expected UNKNOWN on provider failure, got %q", intent)
	}
}

func TestExtractEntities(t *testing.T) {
	d := &fakeDispatcher{responses: []string{
		`{"paragon_identyfikator": {"data": "wtorek", "sklep": null}, "operacje": [{"pole_do_zmiany": "sklep", "nowa_wartosc": "Lidl"}]}`,
	}}
	g := NewGateway(d)

	entities := g.ExtractEntities(context.Background(), "usuń paragon z wtorku", IntentDeletePurchase)

	receipt, ok := entities["paragon_identyfikator"].AsObject()
	if !ok {
		t.Fatal("expected paragon_identyfikator object")
	}
	if date, _ := receipt["data"].AsString(); date != "wtorek" {
		t.Errorf("expected data=wtorek, got %q", date)
	}
	if !receipt["sklep"].IsNull() {
		t.Error("expected sklep to be null")
	}
	ops, ok := entities["operacje"].AsList()
	if !ok || len(ops) != 1 {
		t.Fatalf("expected 1 operation, got %v", entities["operacje"])
	}
}

func TestExtractEntitiesFailureYieldsEmptyBag(t *testing.T) {
	d := &fakeDispatcher{responses: []string{"to nie jest json"}}
	g := NewGateway(d)

	entities := g.ExtractEntities(context.Background(), "x", IntentUpdateItem)
	if entities == nil || len(entities) != 0 {
		t.Errorf("expected empty bag, got %v", entities)
	}
}

func TestInterpretSkipsEntitiesForUnknown(t *testing.T) {
	d := &fakeDispatcher{responses: []string{`{"intencja": "UNKNOWN", "pewnosc": 0.9}`}}
	g := NewGateway(d)

	data := g.Interpret(context.Background(), "opowiedz mi o kotach w kosmosie")
	if !data.IsUnknown() {
		t.Fatalf("expected UNKNOWN, got %q", data.Type)
	}
	if len(d.requests) != 1 {
		t.Errorf("expected 1 model call for UNKNOWN intent, got %d", len(d.requests))
	}
}

func TestInterpretRunsBothCalls(t *testing.T) {
	d := &fakeDispatcher{responses: []string{
		`{"intencja": "DELETE_PURCHASE", "pewnosc": 0.9}`,
		`{"paragon_identyfikator": {"data": "wtorek"}}`,
	}}
	g := NewGateway(d)

	data := g.Interpret(context.Background(), "usuń cały paragon z wtorku")
	if data.Type != IntentDeletePurchase {
		t.Fatalf("expected DELETE_PURCHASE, got %q", data.Type)
	}
	if len(d.requests) != 2 {
		t.Errorf("expected 2 model calls, got %d", len(d.requests))
	}
	if _, ok := data.Entities["paragon_identyfikator"]; !ok {
		t.Error("expected extracted entities")
	}
}

func TestValueRoundTrip(t *testing.T) {
	v := Object(map[string]Value{
		"nazwa": String("mleko"),
		"cena":  Number(4.5),
		"bio":   Bool(false),
		"brak":  Null(),
		"tagi":  List(String("nabiał"), String("podstawowe")),
	})

	obj, ok := v.AsObject()
	if !ok {
		t.Fatal("expected object")
	}
	if name, _ := obj["nazwa"].AsString(); name != "mleko" {
		t.Errorf("unexpected name %q", name)
	}
	if price, _ := obj["cena"].AsNumber(); price != 4.5 {
		t.Errorf("unexpected price %v", price)
	}
	if !obj["brak"].IsNull() {
		t.Error("expected null")
	}
	tags, _ := obj["tagi"].AsList()
	if len(tags) != 2 {
		t.Errorf("expected 2 tags, got %d", len(tags))
	}
	if obj["cena"].Text() != "4.5" {
		t.Errorf("unexpected text rendering %q", obj["cena"].Text())
	}
}
