package attemptsession

import (
	"math/rand"

	"github.com/yourusername/testhub-api/internal/domain/entity"
)

// Randomizer перемешивает порядок вопросов и вариантов ответа.
// Вызывается ровно один раз при создании сессии и работает только
// со снимком теста, которым сессия владеет: канонический порядок
// в БД не меняется, а порядок внутри сессии стабилен до ее конца.
type Randomizer struct {
	rng *rand.Rand
}

// NewRandomizer создает рандомизатор с заданным seed
func NewRandomizer(seed int64) *Randomizer {
	return &Randomizer{rng: rand.New(rand.NewSource(seed))}
}

// Shuffle перемешивает вопросы и/или варианты снимка согласно
// настройкам теста. Список из нуля или одного элемента не трогаем.
func (r *Randomizer) Shuffle(quiz *entity.Quiz) {
	if quiz.ShuffleQuestions {
		r.shuffleQuestions(quiz.Questions)
	}
	if quiz.ShuffleOptions {
		for i := range quiz.Questions {
			r.shuffleOptions(quiz.Questions[i].Options)
		}
	}
}

func (r *Randomizer) shuffleQuestions(questions []entity.Question) {
	if len(questions) <= 1 {
		return
	}
	r.rng.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
}

func (r *Randomizer) shuffleOptions(options entity.OptionList) {
	if len(options) <= 1 {
		return
	}
	r.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
}
