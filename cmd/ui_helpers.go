package cmd

import (
	"fmt"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"

	"odoomcp/cli/internal/errors"
	"odoomcp/cli/internal/httperrors"
	"odoomcp/cli/internal/logging"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// startSpinner shows text next to a rotating frame until the returned
// function is called. The cursor is hidden meanwhile. Calling the stop
// function more than once is harmless.
func startSpinner(text string) func() {
	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return func() {}
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		i := 0
		area.Update(fmt.Sprintf("%s %s", spinnerFrames[0], text))
		for {
			select {
			case <-t.C:
				i++
				area.Update(fmt.Sprintf("%s %s", spinnerFrames[i%len(spinnerFrames)], text))
			case <-stop:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			_ = area.Stop()
			cursor.Show()
		})
	}
}

// presentFailure prints err for a human. Transport failures get the network
// troubleshooting hints; everything else a one-line masked message.
func presentFailure(context, serverURL string, err error) error {
	if err == nil {
		return nil
	}
	if errors.KindOf(err) == errors.Transport {
		return httperrors.FormatNetworkError(err, context, httperrors.ExtractHostFromURL(serverURL))
	}

	pterm.Error.Println(logging.PresentError(context, err))
	switch errors.KindOf(err) {
	case errors.Configuration:
		pterm.Println("   Check ODOO_URL, ODOO_DB and the credentials, or run 'odoo-mcp config'.")
	case errors.Authentication:
		pterm.Println("   Check the username and password or API key, or run 'odoo-mcp login'.")
	}
	return err
}
