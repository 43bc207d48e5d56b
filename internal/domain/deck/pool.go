package deck

import "github.com/emberlink/ember/internal/domain/model"

// defaultPool returns the built-in icebreaker pool. Production deployments
// can replace it via WithCards.
func defaultPool() []model.Card {
	return []model.Card{
		{ID: "c-weekend", Question: "Perfect weekend?", Options: []string{"Hiking somewhere green", "Couch and a series", "Out with friends", "Trying a new place"}},
		{ID: "c-morning", Question: "Mornings are...", Options: []string{"My best hours", "Survivable with coffee", "A myth, I sleep in", "For the gym"}},
		{ID: "c-travel", Question: "Dream trip?", Options: []string{"Beach and nothing else", "City hopping", "Mountains and silence", "Road trip, no plan"}},
		{ID: "c-food", Question: "Food mood tonight?", Options: []string{"Street food", "Home cooking", "Fancy dinner", "Whatever delivers fastest"}},
		{ID: "c-music", Question: "Concert or playlist?", Options: []string{"Live, always", "Headphones on repeat", "Background radio", "Silence is fine"}},
		{ID: "c-pet", Question: "Pets?", Options: []string{"Dog person", "Cat person", "Both, obviously", "Plants count, right?"}},
		{ID: "c-rain", Question: "Rainy day plan?", Options: []string{"Read something", "Movie marathon", "Bake or cook", "Go out anyway"}},
		{ID: "c-talk", Question: "Deep talk or small talk?", Options: []string{"Deep from minute one", "Warm up first", "Depends on the person", "Memes are a language"}},
		{ID: "c-sport", Question: "Moving your body means...", Options: []string{"Team sports", "Gym routine", "Long walks", "Dancing"}},
		{ID: "c-night", Question: "Ideal night out ends...", Options: []string{"Before midnight", "When the place closes", "At a late food spot", "Watching the sunrise"}},
		{ID: "c-game", Question: "Game night pick?", Options: []string{"Board games", "Video games", "Card games", "Charades chaos"}},
		{ID: "c-coffee", Question: "Coffee order?", Options: []string{"Black, no questions", "Something with foam art", "Tea, actually", "Hot chocolate energy"}},
	}
}
