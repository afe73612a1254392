package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/okian/maisearch/internal/domain/model"
	"github.com/okian/maisearch/internal/domain/textnorm"
)

const (
	tabMinWidth = 0
	tabWidth    = 4
	tabPadding  = 2
)

// WriteTable prints songs as a tab-aligned table with one column per chart
// difficulty present in the batch.
func WriteTable(w io.Writer, songs []model.Song, detail bool) error {
	tw := tabwriter.NewWriter(w, tabMinWidth, tabWidth, tabPadding, ' ', 0)

	charts := 0
	for _, s := range songs {
		charts = max(charts, s.ChartCount())
	}
	charts = min(charts, int(model.ReMaster)+1)

	header := []string{"ID", "TITLE", "GENRE", "BPM"}
	if detail {
		header = append(header, "ARTIST")
	}
	for i := 0; i < charts; i++ {
		header = append(header, strings.ToUpper(model.LevelIndex(i).String()))
	}
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")); err != nil {
		return err
	}

	for _, s := range songs {
		row := []string{
			strconv.Itoa(s.ID),
			fmt.Sprintf("[%s]%s", s.Type, s.Title),
			s.BasicInfo.Genre,
			strconv.Itoa(s.BasicInfo.BPM),
		}
		if detail {
			row = append(row, textnorm.HalfWidth(s.BasicInfo.Artist))
		}
		for i := 0; i < charts; i++ {
			row = append(row, chartCell(s, i, detail))
		}
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func chartCell(s model.Song, i int, detail bool) string {
	ds, ok := s.ChartDS(model.LevelIndex(i))
	if !ok {
		return "-"
	}
	cell := fmt.Sprintf("%s(%.1f)", s.Level[i], ds)
	if detail && i < len(s.Charts) && s.Charts[i].Charter != "" && s.Charts[i].Charter != "-" {
		cell += " " + s.Charts[i].Charter
	}
	return cell
}
