// Package content carries the built-in Forest Valley trail catalog: the four
// checkpoints with their quiz questions and field-note stories, plus the set of
// nations visitors can represent. A Postgres-backed loader can override the
// checkpoints; the nation list is fixed.
package content

import "forest-valley-trail/internal/domain"

// Checkpoints returns the built-in trail in walking order.
func Checkpoints() []domain.Checkpoint {
	return []domain.Checkpoint{
		{
			ID:       1,
			Question: "Look up at the Rain Vortex. How tall is the waterfall in front of you?",
			Options:  []string{"20 metres", "40 metres", "60 metres", "80 metres"},
			Answer:   []string{"40 metres"},
			Location: "Canopy bridge, east viewpoint",
			Story: domain.Story{
				Title: "The Rain Vortex",
				Body: "The water roaring past you has already made this trip thousands of times today. " +
					"Collected rainwater is pumped to the roof oculus and released through the centre of the " +
					"building, cooling the valley air as it falls before being filtered and sent up again.",
				Fact:  "At full flow the vortex moves more than 37,000 litres of water per minute.",
				Image: "/assets/stories/rain-vortex.jpg",
			},
		},
		{
			ID:       2,
			Question: "Count the terraced levels of planting that climb the valley walls around you.",
			Options:  []string{"Two", "Three", "Four", "Five"},
			Answer:   []string{"Four"},
			Location: "Valley floor, west stair",
			Story: domain.Story{
				Title: "The Terraced Forest",
				Body: "Each terrace is its own micro-climate. The lowest shelves hold shade plants that " +
					"would scorch in direct sun, while the upper rim carries species that shrug off the heat " +
					"pouring through the glass roof. Gardeners walk every level each morning before opening.",
				Fact:  "Over 900 trees and palms were planted here, many grown offsite for years first.",
				Image: "/assets/stories/terraces.jpg",
			},
		},
		{
			ID:       3,
			Question: "A fig tree near this marker hosts a partner animal that pollinates it. Which one?",
			Options:  []string{"Honeybee", "Fig wasp", "Sunbird", "Fruit bat"},
			Answer:   []string{"Fig wasp"},
			Location: "Fig grove, north path",
			Story: domain.Story{
				Title: "A Thousand-Year Partnership",
				Body: "Every fig species depends on its own species of wasp, and the wasps cannot breed " +
					"anywhere but inside their fig. Neither partner survives without the other, a bargain " +
					"struck tens of millions of years before this valley was built.",
				Fact:  "A fig is not a fruit but an inverted cluster of flowers blooming inward.",
				Image: "/assets/stories/fig-grove.jpg",
			},
		},
		{
			ID:          4,
			Question:    "Final challenge: select ALL THREE water features you passed on the trail.",
			Options:     []string{"Mist bowl", "Reflecting pond", "Stepping cascades", "Geyser fountain", "Koi stream"},
			Answer:      []string{"Mist bowl", "Reflecting pond", "Stepping cascades"},
			MultiSelect: true,
			Location:    "Trail end, south exit",
			Story: domain.Story{
				Title: "Water Remembers the Way",
				Body: "Everything you saw flow, drip or hang as mist on this walk is the same water, " +
					"looping through the valley's closed system. What falls as the vortex feeds the ponds, " +
					"the cascades and finally the misters that cool the forest floor.",
				Fact:  "The valley's climate system offsets over 30 tonnes of CO2 every year.",
				Image: "/assets/stories/cascades.jpg",
			},
		},
	}
}

// Nations returns the selectable teams, in display order.
func Nations() []domain.Nation {
	return []domain.Nation{
		{Code: "SG", Name: "Singapore", Flag: "🇸🇬"},
		{Code: "MY", Name: "Malaysia", Flag: "🇲🇾"},
		{Code: "ID", Name: "Indonesia", Flag: "🇮🇩"},
		{Code: "TH", Name: "Thailand", Flag: "🇹🇭"},
		{Code: "PH", Name: "Philippines", Flag: "🇵🇭"},
		{Code: "VN", Name: "Vietnam", Flag: "🇻🇳"},
		{Code: "IN", Name: "India", Flag: "🇮🇳"},
		{Code: "CN", Name: "China", Flag: "🇨🇳"},
		{Code: "JP", Name: "Japan", Flag: "🇯🇵"},
		{Code: "KR", Name: "South Korea", Flag: "🇰🇷"},
		{Code: "AU", Name: "Australia", Flag: "🇦🇺"},
		{Code: "GB", Name: "United Kingdom", Flag: "🇬🇧"},
		{Code: "US", Name: "United States", Flag: "🇺🇸"},
		{Code: "FR", Name: "France", Flag: "🇫🇷"},
		{Code: "DE", Name: "Germany", Flag: "🇩🇪"},
	}
}
