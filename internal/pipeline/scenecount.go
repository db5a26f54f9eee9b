package pipeline

const (
	minScenes = 3
	maxScenes = 6

	// One scene per 30 seconds of song, within the clamp above.
	secondsPerScene = 30
)

// SceneCount derives the number of scenes from the song duration:
// floor(duration/30) clamped to [3, 6]. Short songs still get a three-beat
// story; long songs cap at six so per-scene clips stay substantial.
func SceneCount(durationSeconds float64) int {
	n := int(durationSeconds / secondsPerScene)
	if n < minScenes {
		return minScenes
	}
	if n > maxScenes {
		return maxScenes
	}
	return n
}
