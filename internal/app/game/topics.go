/*
Package game contains the core logic for the liar game.

This file holds the topic table and the randomness helpers used at game start:
topic selection, liar selection, and the turn-order shuffle.
*/
package game

import "math/rand"

// Topic is a {category, secret word} pair drawn for one game.
type Topic struct {
	Category string `json:"category"`
	Word     string `json:"word"`
}

// topicTable maps each category to its candidate secret words.
// Selection is uniform over categories, then uniform over words within the category.
var topicTable = map[string][]string{
	"food": {
		"pizza", "ramen", "sushi", "tacos", "fried chicken",
		"pancakes", "curry", "pasta", "burger", "dumplings",
	},
	"animals": {
		"dog", "cat", "rabbit", "tiger", "elephant",
		"giraffe", "penguin", "monkey", "eagle", "dolphin",
	},
	"jobs": {
		"doctor", "teacher", "chef", "firefighter", "police officer",
		"pilot", "designer", "youtuber", "lawyer", "singer",
	},
	"places": {
		"amusement park", "library", "swimming pool", "cafe", "cinema",
		"hospital", "school", "supermarket", "park", "gym",
	},
	"sports": {
		"soccer", "basketball", "baseball", "tennis", "swimming",
		"boxing", "volleyball", "golf", "table tennis", "skiing",
	},
}

// topicCategories is the stable iteration order for uniform category selection.
var topicCategories = func() []string {
	categories := make([]string, 0, len(topicTable))
	for category := range topicTable {
		categories = append(categories, category)
	}
	return categories
}()

// randomTopic draws a uniformly random category, then a uniformly random word within it.
func randomTopic() Topic {
	category := topicCategories[rand.Intn(len(topicCategories))]
	words := topicTable[category]

	return Topic{
		Category: category,
		Word:     words[rand.Intn(len(words))],
	}
}

// randIndex draws a uniformly random index in [0, n).
func randIndex(n int) int {
	return rand.Intn(n)
}

// shuffledOrder returns a uniformly random permutation of the given player ids,
// leaving the input untouched. Fisher-Yates: walk from the last index down,
// swapping with a random index at or below it.
func shuffledOrder(ids []string) []string {
	order := make([]string, len(ids))
	copy(order, ids)

	for i := len(order) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}

	return order
}
