package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kalambet/resumesync/internal/llm"
	"github.com/kalambet/resumesync/internal/profile"
)

const extractionPrompt = `You are a profile data extraction engine. Analyze the user's text and extract any resume-related information it explicitly states. Your output must be ONLY a single JSON object that conforms to the provided schema. Do not include any other text, prose, or markdown.

Rules:
1. Extract only what the text states. Never invent values.
2. Return only NEW information. The existing profile is context; do not repeat it.
3. Format dates like "Jan 2020", not "January 2020".
4. Group skills into sensible categories.
5. If nothing profile-related is present, return {}.

Examples:
Text: "My name is John Doe"
Output: {"personal_info": {"full_name": "John Doe"}}

Text: "I worked at Google as a Software Engineer from 2020 to 2022"
Output: {"experience": [{"title": "Software Engineer", "company": "Google", "start_date": "Jan 2020", "end_date": "Dec 2022", "is_current": false}]}

Text: "I know Python, JavaScript, and React"
Output: {"skills": [{"category": "Programming Languages", "skills": ["Python", "JavaScript"]}, {"category": "Frameworks", "skills": ["React"]}]}`

const chatPrompt = `You are a resume building assistant. Guide the user step by step to build or improve their resume: name, then summary, then experience, education, skills and projects.

Rules:
1. Greet briefly when greeted and ask which section they want to work on.
2. Keep the conversation on resumes, jobs and career advice.
3. Be professional and concise. Do not ask for details the known profile already has.

Respond with a JSON object with two keys:
- "message": your reply to the user.
- "extracted_data": any profile information from the user's latest message, structured like the schema, or null if there is none.`

const enhancePrompt = `You are an expert resume writer. Rewrite the profile below to read stronger.

Rules:
1. Write a compelling professional summary of 3-4 lines.
2. Rewrite experience and project descriptions with action verbs and concrete impact.
3. Copy every title, company and project name exactly as given; they identify the entry.
4. Do not invent employers, projects, dates or numbers that are not implied by the input.
5. Output ONLY a JSON object matching the schema.`

// buildExtractRequest prepares a one-shot extraction call.
func buildExtractRequest(text string, hint profile.Profile) llm.Request {
	var sb strings.Builder
	sb.WriteString(extractionPrompt)
	writeHint(&sb, "Existing profile (context only, do not repeat)", hint)

	return llm.Request{
		System:      sb.String(),
		Messages:    []llm.Message{{Role: "user", Content: text}},
		Schema:      fragmentSchema(),
		Temperature: extractTemperature,
	}
}

func buildChatRequest(history []llm.Message, message string, hint profile.Profile) llm.Request {
	var sb strings.Builder
	sb.WriteString(chatPrompt)
	writeHint(&sb, "Known profile (do not ask for these)", hint)

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: message})

	return llm.Request{
		System:      sb.String(),
		Messages:    messages,
		Schema:      chatSchema(),
		Temperature: chatTemperature,
	}
}

func buildEnhanceRequest(p profile.Profile) (llm.Request, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return llm.Request{}, fmt.Errorf("marshaling profile: %w", err)
	}
	return llm.Request{
		System:      enhancePrompt,
		Messages:    []llm.Message{{Role: "user", Content: string(data)}},
		Schema:      enhancementSchema(),
		Temperature: chatTemperature,
	}, nil
}

// writeHint appends the profile as indented JSON. An empty profile adds
// nothing.
func writeHint(sb *strings.Builder, title string, p profile.Profile) {
	if p.IsEmpty() {
		return
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintf(sb, "\n\n[%s]\n%s", title, data)
}
