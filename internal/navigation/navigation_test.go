package navigation

import (
	"testing"

	"feedwarden/internal/components/dispatch"
	"feedwarden/internal/components/telemetry"
	"feedwarden/internal/htmldom"

	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*htmldom.Document, *dispatch.Manual, *Watcher, *[]Transition) {
	sched := dispatch.NewManual()
	doc, err := htmldom.ParseString(`<body><main id="app"><div id="contents"></div></main></body>`, "/", sched, htmldom.Options{})
	require.NoError(t, err)

	var transitions []Transition
	w := NewWatcher(doc, &telemetry.Recorder{})
	w.Start(func(tr Transition) { transitions = append(transitions, tr) })
	return doc, sched, w, &transitions
}

func TestInitialTransition(t *testing.T) {
	_, _, w, transitions := setup(t)
	require.Equal(t, []Transition{{Initial: true, To: "/"}}, *transitions)
	require.Equal(t, "/", w.Path())

	w.Start(func(Transition) { t.Fatal("restart should be a no-op") })
}

func TestTransitionOnPathChange(t *testing.T) {
	doc, sched, w, transitions := setup(t)

	require.NoError(t, doc.Navigate("/watch", doc.Find("#app"), `<div id="player"></div>`))
	sched.RunPending()
	require.Equal(t, Transition{From: "/", To: "/watch"}, (*transitions)[1])
	require.Equal(t, "/watch", w.Path())

	require.NoError(t, doc.Navigate("/", doc.Find("#app"), `<div id="contents"></div>`))
	sched.RunPending()
	require.Len(t, *transitions, 3)
	require.Equal(t, Transition{From: "/watch", To: "/"}, (*transitions)[2])
}

func TestNoTransitionOnSamePath(t *testing.T) {
	doc, sched, _, transitions := setup(t)

	_, err := doc.AppendHTML(doc.Find("#contents"), `<div>more</div>`)
	require.NoError(t, err)
	sched.RunPending()
	require.Len(t, *transitions, 1)
}

func TestPathChangeWithoutMutation(t *testing.T) {
	doc, sched, w, transitions := setup(t)

	doc.SetPath("/feed/history")
	sched.RunPending()
	require.Len(t, *transitions, 1)

	w.check()
	require.Len(t, *transitions, 2)
	require.Equal(t, "/feed/history", (*transitions)[1].To)
}

func TestStopDisconnects(t *testing.T) {
	doc, sched, w, transitions := setup(t)
	require.Equal(t, 1, doc.ObserverCount())

	require.NoError(t, doc.Navigate("/watch", doc.Find("#app"), `<div></div>`))
	w.Stop()
	w.Stop()
	require.Equal(t, 0, doc.ObserverCount())

	sched.RunPending()
	w.check()
	require.Len(t, *transitions, 1)
}
