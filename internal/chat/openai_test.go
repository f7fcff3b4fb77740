package chat

import (
	"testing"
)

func TestOpenAITools(t *testing.T) {
	tools := openAITools()
	if len(tools) != 2 {
		t.Fatalf("len(tools) = %d, want 2", len(tools))
	}

	if got := tools[0].Function.Name; got != toolAddResource {
		t.Errorf("tools[0] name = %q, want %q", got, toolAddResource)
	}
	if got := tools[1].Function.Name; got != toolGetInformation {
		t.Errorf("tools[1] name = %q, want %q", got, toolGetInformation)
	}

	wantRequired := map[string]string{
		toolAddResource:    "content",
		toolGetInformation: "question",
	}
	for _, tool := range tools {
		required, ok := tool.Function.Parameters["required"].([]string)
		if !ok || len(required) != 1 {
			t.Fatalf("%s: required = %v", tool.Function.Name, tool.Function.Parameters["required"])
		}
		if want := wantRequired[tool.Function.Name]; required[0] != want {
			t.Errorf("%s: required = %q, want %q", tool.Function.Name, required[0], want)
		}
	}
}

func TestOpenAIToolChoice(t *testing.T) {
	forced := openAIToolChoice(PolicyForceRetrieval)
	if forced.OfChatCompletionNamedToolChoice == nil {
		t.Fatal("forced retrieval should name a tool")
	}
	if got := forced.OfChatCompletionNamedToolChoice.Function.Name; got != toolGetInformation {
		t.Errorf("forced tool = %q, want %q", got, toolGetInformation)
	}

	auto := openAIToolChoice(PolicyAuto)
	if auto.OfChatCompletionNamedToolChoice != nil {
		t.Error("auto policy should not name a tool")
	}
	if got := auto.OfAuto.Or(""); got != "auto" {
		t.Errorf("auto choice = %q, want %q", got, "auto")
	}
}
