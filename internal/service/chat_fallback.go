package service

import "strings"

type cannedReply struct {
	keywords []string
	reply    string
}

// Checked in order, first hit wins
var cannedReplies = []cannedReply{
	{
		keywords: []string{"hello", " hi ", " hey", "привет", "здравствуй", "добрый"},
		reply:    "Hello! I'm Career Guide, your career advisor. How can I help with your professional development?",
	},
	// " work" has a leading space so "network" falls through to the
	// networking reply below
	{
		keywords: []string{"career", "profession", "job", " work", "карьер", "професси", "работ"},
		reply:    "A successful career needs constant learning and adapting to the job market. Start by naming your strengths and growing the skills that are in demand.",
	},
	{
		keywords: []string{"network", "contact", "linkedin", "сеть", "контакт", "знакомств"},
		reply:    "Networking is a key skill for career growth. Attend professional events, use LinkedIn to make contacts and be ready to help others.",
	},
	{
		keywords: []string{"skill", "competenc", "навык", "умение", "компетенц"},
		reply:    "Soft skills matter as much as technical knowledge. Work on communication, leadership, problem solving and emotional intelligence.",
	},
	{
		keywords: []string{"resume", "cv", "резюме", "анкет"},
		reply:    "A resume should show concrete achievements and results. Use numbers and facts, and describe what you contributed to past projects.",
	},
	{
		keywords: []string{"interview", "собеседован", "интервью"},
		reply:    "To prepare for an interview, research the company, prepare your own questions and examples of your achievements, and practice answers to common questions.",
	},
	{
		keywords: []string{"study", "course", "education", "university", "обучен", "курс", "образован"},
		reply:    "Continuous learning drives professional growth. Look at online courses, workshops, mentoring and certifications that match your career goals.",
	},
	{
		keywords: []string{"how are you", "как ты", "дела", "состояние"},
		reply:    "Thanks for asking! I'm ready to help with your career questions. What do you need help with?",
	},
}

const defaultReply = "Tell me more about your career situation or ask a specific question about professional development, so I can give more useful advice."

// FallbackReply picks a canned answer by keyword. The result depends only
// on message.
func FallbackReply(message string) string {
	m := " " + strings.ToLower(message) + " "

	for _, c := range cannedReplies {
		for _, k := range c.keywords {
			if strings.Contains(m, k) {
				return c.reply
			}
		}
	}

	return defaultReply
}
