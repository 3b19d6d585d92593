package domain

// SoundLabels is the sound-type taxonomy in classifier class-index order
var SoundLabels = []string{
	"air_conditioner",
	"car_horn",
	"children_playing",
	"dog_bark",
	"drilling",
	"engine_idling",
	"gun_shot",
	"jackhammer",
	"siren",
	"street_music",
}

// UnknownSoundLabel is used for class indices outside the taxonomy
const UnknownSoundLabel = "unknown"

// SoundLabel maps a classifier class index to its label
func SoundLabel(index int) string {
	if index < 0 || index >= len(SoundLabels) {
		return UnknownSoundLabel
	}
	return SoundLabels[index]
}

// IsKnownSoundType reports whether the label belongs to the taxonomy
func IsKnownSoundType(label string) bool {
	for _, l := range SoundLabels {
		if l == label {
			return true
		}
	}
	return false
}
