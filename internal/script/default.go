package script

// Default returns the built-in experiment: a start screen, the
// movie-viewing phase with its three modes, and an end screen.
func Default() *Script {
	return &Script{
		Version: 1,
		Phases: []Phase{
			&Screen{Name: "VideoSegStart", Text: "Next activity starting soon.", WaitKey: "space", Record: true},
			&MovieViewing{
				Name: "MovieViewing",
				Modes: []ModeTasks{
					{
						Mode: ModePassive,
						Tasks: []Task{
							&Screen{
								Name:    "InitialInstructions",
								Text:    "Thank you for participation. We'll first have you simply watch a short clip.",
								WaitKey: "space",
							},
							&VideoTask{Name: "Movie", Marker: "passive_movie", Playback: PlaybackPassive, Record: true},
						},
					},
					{
						Mode: ModeRetroactive,
						Tasks: []Task{
							&Screen{
								Name:    "RetroactiveInstructionsPassive",
								Text:    "During this next clip, pay attention to the sequence of events and when one distinct event ends and another begins.",
								WaitKey: "space",
							},
							&VideoTask{Name: "MovieView1", Marker: "retro_passive_movie", Playback: PlaybackPassiveReplay, Record: true},
							&Screen{
								Name:    "RetroactiveInstructionsSegment",
								Text:    "We'll now have you watch the same clip. Once again, pay attention to the sequence of events. However, this time you'll press the spacebar to mark when one distinct event ends and another begins.",
								WaitKey: "space",
							},
							&VideoTask{Name: "MovieView2", Marker: "retro_segment_movie", Playback: PlaybackSegment, Record: true},
						},
					},
					{
						Mode: ModeProactive,
						Tasks: []Task{
							&Screen{
								Name:    "ProactiveInstructionsSegment",
								Text:    "During this next clip, pay attention to the sequence of events and press the spacebar to mark when one distinct event ends and another begins.",
								WaitKey: "space",
							},
							&VideoTask{Name: "MovieView", Marker: "proactive_segment_movie", Playback: PlaybackSegment, Record: true},
						},
					},
				},
			},
			&Screen{Name: "VideoSegEnd", Text: "Thank you!", WaitKey: "space", Record: true},
		},
	}
}
