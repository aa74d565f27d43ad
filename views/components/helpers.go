package components

import (
	"fmt"

	"github.com/a-h/templ"

	"numrush/internal/viewmodel"
)

func actionURL(sessionID, action string) templ.SafeURL {
	return templ.URL("/play/" + sessionID + "/" + action)
}

func boardStyle(data viewmodel.BoardFragment) string {
	return fmt.Sprintf("width:%.0fpx;height:%.0fpx", data.Width, data.Height)
}

func pointStyle(board viewmodel.BoardFragment, p viewmodel.PointView) string {
	return fmt.Sprintf("left:%.1fpx;top:%.1fpx;width:%.0fpx;height:%.0fpx;z-index:%d;opacity:%.2f",
		p.X, p.Y, board.PointSize, board.PointSize, p.Layer, p.Opacity)
}

// autoPlayLabel names what the button does, not the current mode.
func autoPlayLabel(on bool) string {
	if on {
		return "Auto Play OFF"
	}
	return "Auto Play ON"
}
