package tone

import "strings"

const relationshipPlaceholder = "{{relationship}}"

// DefaultRewritePrompt instructs the model to return only the rewritten text.
const DefaultRewritePrompt = `You rewrite chat messages before they are delivered.
The sender describes the receiver as their {{relationship}}.
Rewrite the message so its wording suits that relationship.
Keep the original intent and emotion. Do not add new information.
Reply with the rewritten message only, without quotes or commentary.`

// DefaultChatPrompt is the persona used by the chat demo surface.
const DefaultChatPrompt = `You are a friendly conversation partner talking to someone
who is your {{relationship}}. Answer naturally and keep replies short.`

// RenderPrompt substitutes the relationship into a prompt template. A
// template without the placeholder gets the relationship appended.
func RenderPrompt(template, relationship string) string {
	if template == "" {
		template = DefaultRewritePrompt
	}
	relationship = strings.TrimSpace(relationship)
	if relationship == "" {
		relationship = "acquaintance"
	}
	if strings.Contains(template, relationshipPlaceholder) {
		return strings.ReplaceAll(template, relationshipPlaceholder, relationship)
	}
	return template + "\nRelationship: " + relationship
}
