package practice

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

type bankEntry struct {
	text      string
	followUps []string
}

// questionBank holds the seed prompts per type and difficulty.
var questionBank = map[QuestionType]map[Difficulty][]bankEntry{
	QuestionTypeBehavioral: {
		DifficultyEasy: {
			{text: "Tell me about a project you are proud of.", followUps: []string{"What was your specific contribution?"}},
			{text: "Describe a time you helped a teammate get unblocked."},
			{text: "How do you prioritize your work when everything feels urgent?"},
		},
		DifficultyMedium: {
			{text: "Tell me about a disagreement with a colleague and how you resolved it.", followUps: []string{"What would you do differently now?"}},
			{text: "Describe a time you missed a deadline. What happened next?"},
			{text: "Give an example of feedback that changed how you work."},
		},
		DifficultyHard: {
			{text: "Describe a decision you made with incomplete information that turned out wrong.", followUps: []string{"How did you communicate the impact?", "What signal did you miss?"}},
			{text: "Tell me about a time you had to push back on leadership."},
			{text: "Walk me through leading a team through an incident you were accountable for."},
		},
	},
	QuestionTypeTechnical: {
		DifficultyEasy: {
			{text: "What is the difference between a process and a thread?"},
			{text: "Explain what an HTTP status code communicates and name a few common ones."},
			{text: "What does an index do in a relational database?"},
		},
		DifficultyMedium: {
			{text: "How would you debug a service whose latency doubled after a deploy?", followUps: []string{"Which metrics would you check first?"}},
			{text: "Explain the trade-offs between optimistic and pessimistic locking."},
			{text: "How does a cache invalidation strategy affect consistency?"},
		},
		DifficultyHard: {
			{text: "Explain how you would guarantee exactly-once processing on top of an at-least-once queue.", followUps: []string{"Where do idempotency keys live?"}},
			{text: "Describe how MVCC works and the anomalies it still allows."},
			{text: "How would you find and fix a memory leak in a long-running production process?"},
		},
	},
	QuestionTypeCoding: {
		DifficultyEasy: {
			{text: "Write a function that reverses a string without using a library reverse."},
			{text: "Return the indices of two numbers in an array that add up to a target."},
			{text: "Check whether a string of brackets is balanced."},
		},
		DifficultyMedium: {
			{text: "Merge a list of overlapping intervals.", followUps: []string{"What is the time complexity?"}},
			{text: "Implement an LRU cache with O(1) get and put."},
			{text: "Find the length of the longest substring without repeating characters."},
		},
		DifficultyHard: {
			{text: "Find the median of two sorted arrays in logarithmic time.", followUps: []string{"How do you handle empty inputs?"}},
			{text: "Serialize and deserialize a binary tree."},
			{text: "Compute the minimum window substring containing all characters of a pattern."},
		},
	},
	QuestionTypeSystemDesign: {
		DifficultyEasy: {
			{text: "Design a URL shortener."},
			{text: "Design a basic rate limiter for a public API."},
			{text: "Design a key-value store for a single machine."},
		},
		DifficultyMedium: {
			{text: "Design a notification service that supports email and push.", followUps: []string{"How do you handle retries?"}},
			{text: "Design a news feed for a social application."},
			{text: "Design a file upload service with resumable uploads."},
		},
		DifficultyHard: {
			{text: "Design a globally distributed chat system with message ordering guarantees.", followUps: []string{"How do you handle a region outage?", "Where is ordering enforced?"}},
			{text: "Design a payments ledger that stays consistent across services."},
			{text: "Design a real-time collaborative document editor."},
		},
	},
}

// expected answer time in seconds per difficulty; coding and design run longer.
var baseDuration = map[Difficulty]int{
	DifficultyEasy:   120,
	DifficultyMedium: 300,
	DifficultyHard:   600,
}

// Generator produces the questions for a new session.
type Generator interface {
	Generate(qType QuestionType, difficulty Difficulty, count int, role string) []Question
}

// BankGenerator draws questions from the built-in bank.
type BankGenerator struct {
	rng *rand.Rand
}

// NewBankGenerator returns a generator shuffling with the provided seed.
// A zero seed keeps the bank order, which tests rely on.
func NewBankGenerator(seed uint64) *BankGenerator {
	if seed == 0 {
		return &BankGenerator{}
	}
	return &BankGenerator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate returns count questions. When the bank runs short the prompts
// are reused with a variant suffix so every id stays unique in the session.
func (g *BankGenerator) Generate(qType QuestionType, difficulty Difficulty, count int, role string) []Question {
	entries := questionBank[qType][difficulty]
	if len(entries) == 0 || count <= 0 {
		return []Question{}
	}

	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	if g != nil && g.rng != nil {
		g.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	role = strings.TrimSpace(role)
	questions := make([]Question, 0, count)
	for i := 0; i < count; i++ {
		idx := order[i%len(order)]
		round := i / len(order)
		entry := entries[idx]

		id := fmt.Sprintf("%s-%s-%02d", qType, difficulty, idx+1)
		text := entry.text
		if round > 0 {
			id = fmt.Sprintf("%s-v%d", id, round+1)
			text = fmt.Sprintf("%s (variant %d)", text, round+1)
		}
		if role != "" {
			text = fmt.Sprintf("%s Answer from the perspective of a %s.", text, role)
		}

		q := Question{
			ID:               id,
			Text:             text,
			Type:             qType,
			Difficulty:       difficulty,
			ExpectedDuration: expectedDuration(qType, difficulty),
		}
		if len(entry.followUps) > 0 {
			q.FollowUpQuestions = append([]string(nil), entry.followUps...)
		}
		questions = append(questions, q)
	}
	return questions
}

func expectedDuration(qType QuestionType, difficulty Difficulty) int {
	seconds := baseDuration[difficulty]
	switch qType {
	case QuestionTypeCoding, QuestionTypeSystemDesign:
		seconds *= 3
	}
	return seconds
}
