package ai

// Prompt templates use eino FString placeholders. Literal braces must not
// appear in the template text itself; substituted values may contain anything.

const personaSystemPrompt = `You are analyzing a user's entire chat history to derive a concise "persona" or speaking style.
The persona should reflect how they talk, any key phrases, personality traits, or interests,
based on the following messages. Summarize in 2-3 sentences.`

const personaUserPrompt = `{history}`

// The reply is written in the mentioned user's voice, so the persona itself
// is the system prompt.
const replySystemPrompt = `{persona}`

const replyUserPrompt = `Persona: {persona}
---
Conversation so far:
{transcript}
---
User @{target} just mentioned me saying:
"{content}"
---
Respond in the style of the persona above:`
