package analyzer

import (
	"fmt"
	"strings"
)

// buildAnalysisPrompt asks for the same event JSON the pose pipeline
// emits, so the model's answer can be parsed with the regular event
// decoder and compared side by side.
func buildAnalysisPrompt(timestamps []float64) string {
	stamps := make([]string, len(timestamps))
	for i, t := range timestamps {
		stamps[i] = fmt.Sprintf("%.1fs", t)
	}

	return fmt.Sprintf(`Analyze these %d sequential frames from a pull-up workout video.

Frame timestamps: %s

Analyze each frame for pull-up activity and provide a JSON response with the following structure:

{
    "pull_ups": [
        {
            "timestamp_start": "0:05.2",
            "timestamp_peak": "0:06.1",
            "timestamp_end": "0:07.3",
            "result": "completed",
            "failure_reason": null,
            "form_score": 85,
            "feedback": "Good form - maintain straight body alignment"
        }
    ],
    "overall_analysis": {
        "body_alignment": "good",
        "range_of_motion": "full",
        "tempo": "controlled",
        "grip_stability": "stable"
    }
}

Key criteria for pull-up analysis:
1. Completed pull-up: chin must clearly rise above the bar AND arms must fully extend at the bottom
2. Body alignment: look for straight body position, minimal swinging or kipping
3. Range of motion: full extension at bottom (arms straight) to chin over bar at top
4. Controlled movement: smooth ascent and descent, not using momentum
5. Grip and shoulder: proper shoulder engagement, stable grip position

Form scoring (0-100):
- 90-100: perfect form with full range of motion
- 80-89: good form with minor issues
- 70-79: acceptable form with moderate issues
- 60-69: poor form with significant issues
- Below 60: very poor form or incomplete movement

Form feedback must be specific, actionable, focused on the most important
improvement, and at most 12 words.

Failure reasons (use exactly one when result is "failed"):
- "chin_not_over_bar": chin did not clear the bar
- "incomplete_extension": arms did not fully extend at bottom
- "excessive_swinging": too much body momentum or kipping

If no pull-up motion is detected in these frames, return an empty pull_ups
array but still provide overall_analysis of the person's position.

IMPORTANT: Return ONLY the JSON response, no additional text.`,
		len(timestamps), strings.Join(stamps, ", "))
}
