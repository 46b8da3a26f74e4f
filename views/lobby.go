package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/AdamBeresnev/code-duels/internal/duel"
	users "github.com/AdamBeresnev/code-duels/internal/user"
	"github.com/a-h/templ"
)

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title>`+
			`<link rel="stylesheet" href="/static/style.css"></head><body>`, templ.EscapeString(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

func LoginPage() templ.Component {
	return layout("Code Duels - Login", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<main class="login"><h1>Code Duels</h1>`+
			`<a class="button" href="/auth/discord">Sign in with Discord</a>`+
			`<a class="button" href="/auth/google">Sign in with Google</a>`+
			`<form method="post" action="/auth/guest"><button type="submit">Continue as guest</button></form>`+
			`</main>`)
		return err
	}))
}

// LobbyPage lists joinable duels, the viewer's current duel and their past
// results.
func LobbyPage(user *users.User, data LobbyData) templ.Component {
	return layout("Code Duels", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		fmt.Fprintf(&b, `<header><h1>Code Duels</h1><span class="user">%s &middot; %d XP</span>`,
			templ.EscapeString(user.Username), user.XP)
		b.WriteString(`<form method="post" action="/logout"><button type="submit">Log out</button></form></header><main>`)

		fmt.Fprintf(&b, `<section class="record">%d played &middot; %d won &middot; %d lost &middot; %d expired</section>`,
			data.Record.Played(), data.Record.Wins, data.Record.Losses, data.Record.Expired)

		if data.Current != nil {
			fmt.Fprintf(&b, `<section class="current"><h2>Current duel</h2><a href="/duels/%s">%s vs %s</a> <span class="status">%s</span></section>`,
				data.Current.ID, templ.EscapeString(data.Current.ChallengerName),
				templ.EscapeString(opponentLabel(*data.Current)), templ.EscapeString(string(data.Current.Status)))
		}

		b.WriteString(`<section class="available"><h2>Open duels</h2>`)
		if len(data.Available) == 0 {
			b.WriteString(`<p>No open duels right now.</p>`)
		} else {
			b.WriteString(`<ul>`)
			for _, s := range data.Available {
				fmt.Fprintf(&b, `<li><span>%s</span> <span class="question">%s</span>`+
					`<button hx-post="/duels/%s/join" hx-swap="none">Join</button></li>`,
					templ.EscapeString(s.ChallengerName), templ.EscapeString(s.QuestionText), s.ID)
			}
			b.WriteString(`</ul>`)
		}
		b.WriteString(`</section>`)

		b.WriteString(`<section class="history"><h2>History</h2>`)
		if len(data.Past) == 0 {
			b.WriteString(`<p>No finished duels yet.</p>`)
		} else {
			b.WriteString(`<table><thead><tr><th>Question</th><th>Opponent</th><th>Result</th></tr></thead><tbody>`)
			for _, s := range data.Past {
				fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%s</td></tr>`,
					templ.EscapeString(s.QuestionText), templ.EscapeString(versus(user, s)),
					templ.EscapeString(ResultFor(user.ID, s)))
			}
			b.WriteString(`</tbody></table>`)
		}
		b.WriteString(`</section></main>`)

		_, err := io.WriteString(w, b.String())
		return err
	}))
}

// versus names the other side of a duel from the viewer's point of view.
func versus(user *users.User, s duel.Summary) string {
	if s.ChallengerID == user.ID {
		return opponentLabel(s)
	}
	return s.ChallengerName
}
