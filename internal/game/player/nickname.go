package player

import "math/rand/v2"

// 昵称词库
var (
	adjectives = []string{
		"Brave", "Clever", "Lucky", "Sneaky", "Swift",
		"Bold", "Jolly", "Mighty", "Calm", "Wild",
		"Witty", "Dapper", "Gentle", "Fierce", "Chill",
		"Shiny", "Daring", "Sly", "Quirky", "Stoic",
	}

	nouns = []string{
		"Panda", "Tiger", "Lion", "Monkey", "Rabbit",
		"Fox", "Dolphin", "Penguin", "Koala", "Corgi",
		"Shiba", "Otter", "Hamster", "Hedgehog", "Squirrel",
		"Raccoon", "Alpaca", "Falcon", "Badger", "Gecko",
	}
)

// GenerateNickname 生成随机昵称，用于空白显示名
func GenerateNickname() string {
	return adjectives[rand.IntN(len(adjectives))] + " " + nouns[rand.IntN(len(nouns))]
}
