package hydrate

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type profile struct {
	ID       string   `json:"Id"`
	Name     string   `json:"name"`
	Retries  int      `json:"retries"`
	Tags     []string `json:"tags"`
	Settings settings `json:"settings"`
}

type settings struct {
	Theme string `json:"theme"`
}

func TestDecoderDecodesPayload(t *testing.T) {
	decoder := NewDecoder[profile]()
	payload := map[string]any{
		"Id":       "p-1",
		"name":     "ada",
		"retries":  3,
		"tags":     []any{"a", "b"},
		"settings": map[string]any{"theme": "dark"},
	}

	got, err := decoder.Decode(Context{Schema: "Profile", ContainerID: "p-1"}, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := profile{ID: "p-1", Name: "ada", Retries: 3, Tags: []string{"a", "b"}, Settings: settings{Theme: "dark"}}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("mismatch:\nwant: %#v\n got: %#v", want, got)
	}
	if payload["settings"].(map[string]any)["theme"] != "dark" {
		t.Fatalf("payload mutated")
	}
}

func TestDecoderNilPayload(t *testing.T) {
	_, err := NewDecoder[profile]().Decode(Context{Schema: "Profile"}, nil)
	if err == nil || !strings.Contains(err.Error(), `"Profile"`) {
		t.Fatalf("expected nil payload error naming schema, got %v", err)
	}
}

func TestDecoderHooksRunInOrder(t *testing.T) {
	var seen []string
	decoder := NewDecoder[profile](
		WithPreHook[profile](func(ctx Context, payload map[string]any) (map[string]any, error) {
			seen = append(seen, "pre:"+ctx.Schema)
			payload["name"] = strings.ToUpper(payload["name"].(string))
			return payload, nil
		}),
		WithPostHook[profile](func(ctx Context, p *profile) error {
			seen = append(seen, "post:"+ctx.ContainerID)
			if len(p.Tags) == 0 {
				p.Tags = []string{ctx.Schema}
			}
			return nil
		}),
	)

	got, err := decoder.Decode(Context{Schema: "Profile", ContainerID: "p-2"}, map[string]any{"name": "grace"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "GRACE" {
		t.Fatalf("pre-hook not applied: %q", got.Name)
	}
	if !reflect.DeepEqual(got.Tags, []string{"Profile"}) {
		t.Fatalf("post-hook not applied: %v", got.Tags)
	}
	if !reflect.DeepEqual(seen, []string{"pre:Profile", "post:p-2"}) {
		t.Fatalf("unexpected hook order %v", seen)
	}
}

func TestDecoderHookErrorsWrap(t *testing.T) {
	boom := errors.New("boom")
	decoder := NewDecoder[profile](WithPostHook[profile](func(Context, *profile) error {
		return boom
	}))
	_, err := decoder.Decode(Context{Schema: "Profile"}, map[string]any{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped hook error, got %v", err)
	}
	if !strings.Contains(err.Error(), "post-hook") {
		t.Fatalf("expected post-hook context, got %v", err)
	}
}

func TestDecoderDisallowUnknownFields(t *testing.T) {
	decoder := NewDecoder[profile](WithDisallowUnknownFields[profile]())
	_, err := decoder.Decode(Context{Schema: "Profile"}, map[string]any{"extra": true})
	if err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestDecoderUseNumber(t *testing.T) {
	decoder := NewDecoder[map[string]any](WithUseNumber[map[string]any]())
	got, err := decoder.Decode(Context{Schema: "Profile"}, map[string]any{"retries": 7})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := got["retries"].(json.Number); !ok {
		t.Fatalf("expected json.Number, got %T", got["retries"])
	}
}

func TestDecoderCustomDecoder(t *testing.T) {
	decoder := NewDecoder[profile](WithCustomDecoder[profile](func(ctx Context, payload map[string]any) (profile, error) {
		return profile{ID: ctx.ContainerID, Name: "custom"}, nil
	}))
	got, err := decoder.Decode(Context{Schema: "Profile", ContainerID: "p-3"}, map[string]any{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "p-3" || got.Name != "custom" {
		t.Fatalf("unexpected result %+v", got)
	}
}
