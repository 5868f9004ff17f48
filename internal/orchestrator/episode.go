package orchestrator

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/example/watchdeck/internal/omdb"
)

// ErrNoEpisodes means the picked season listed no episodes. The caller keeps
// whatever pick it already had.
var ErrNoEpisodes = errors.New("no episodes found for this series")

// EpisodePick is one randomly selected episode of a series.
type EpisodePick struct {
	SeriesID string       `json:"series_id"`
	Season   int          `json:"season"`
	Episode  omdb.Episode `json:"episode"`
}

// PickRandomEpisode picks a uniformly random season of the series and a
// uniformly random episode within it. totalSeasons below 1 is treated as a
// single-season show. intn overrides the random source; pass nil for the
// default.
func PickRandomEpisode(ctx context.Context, api MovieAPI, imdbID string, totalSeasons int, intn func(int) int) (EpisodePick, error) {
	if intn == nil {
		intn = rand.IntN
	}
	if totalSeasons < 1 {
		totalSeasons = 1
	}
	season := intn(totalSeasons) + 1

	list, err := api.Season(ctx, imdbID, season)
	if err != nil {
		return EpisodePick{}, err
	}
	if len(list.Episodes) == 0 {
		return EpisodePick{}, ErrNoEpisodes
	}
	return EpisodePick{
		SeriesID: imdbID,
		Season:   season,
		Episode:  list.Episodes[intn(len(list.Episodes))],
	}, nil
}

// TotalSeasons parses the detail record's season count. Anything unparseable
// counts as one season.
func TotalSeasons(d omdb.Detail) int {
	n, err := strconv.Atoi(strings.TrimSpace(d.TotalSeasons))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// RandomEpisode fetches the series record and settles on a random episode of
// it, superseding any in-flight pick. A season with no episodes raises an
// Info notice and keeps the previous pick.
func (o *Orchestrator) RandomEpisode(ctx context.Context, imdbID string) (*EpisodePick, error) {
	o.mu.Lock()
	runCtx, seq := o.episode.begin(ctx, 0)
	intn := o.randIntN
	o.mu.Unlock()

	pick, err := o.runRandomEpisode(runCtx, imdbID, intn)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.episode.seq != seq {
		return nil, context.Canceled
	}
	o.episode.cancel = nil
	o.episode.phase = PhaseSettled
	if err != nil {
		if isCancellation(err) {
			return nil, context.Canceled
		}
		if errors.Is(err, ErrNoEpisodes) {
			// Keep the previous pick visible.
			o.notify.Info(ErrNoEpisodes.Error())
		} else {
			o.notify.Error("Failed to pick a random episode")
		}
		return nil, err
	}
	o.episode.value = &pick
	return &pick, nil
}

func (o *Orchestrator) runRandomEpisode(ctx context.Context, imdbID string, intn func(int) int) (EpisodePick, error) {
	d, err := o.api.Detail(ctx, imdbID)
	if err != nil {
		return EpisodePick{}, err
	}
	return PickRandomEpisode(ctx, o.api, imdbID, TotalSeasons(d), intn)
}

// EpisodeResult reports the current random-episode state.
func (o *Orchestrator) EpisodeResult() (*EpisodePick, Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.episode.value, o.episode.phase
}
