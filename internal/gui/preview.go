package gui

import (
	"context"
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/objectdesk/objectdesk/internal/constants"
	"github.com/objectdesk/objectdesk/internal/core"
	"github.com/objectdesk/objectdesk/internal/models"
	"github.com/objectdesk/objectdesk/internal/services"
)

// showPreview opens a text object in an editor window. Objects that are too
// large or not text offer a download instead.
func showPreview(ctx context.Context, engine *core.Engine, parent fyne.Window, bucket string, entry models.Entry, statusBar *StatusBar) {
	if entry.Size > constants.PreviewMaxBytes {
		offerDownload(ctx, engine, parent, bucket, entry, fmt.Sprintf("%s is %s, too large to preview.", entry.Name(), entry.SizeString()))
		return
	}

	statusBar.SetProgress("Opening " + entry.Name() + "...")
	go func() {
		text, err := engine.FileService().ReadText(ctx, bucket, entry.Key)
		switch {
		case errors.Is(err, services.ErrNotText), errors.Is(err, services.ErrTooLarge):
			statusBar.SetInfo("Ready")
			fyne.Do(func() {
				offerDownload(ctx, engine, parent, bucket, entry, fmt.Sprintf("%s cannot be shown as text.", entry.Name()))
			})
			return
		case err != nil:
			statusBar.SetError("Could not open " + entry.Name() + ": " + err.Error())
			return
		}
		statusBar.SetInfo("Ready")
		fyne.Do(func() { showEditor(ctx, engine, bucket, entry, text, statusBar) })
	}()
}

func showEditor(ctx context.Context, engine *core.Engine, bucket string, entry models.Entry, text string, statusBar *StatusBar) {
	w := fyne.CurrentApp().NewWindow(models.ObjectURL{Bucket: bucket, Key: entry.Key}.String())

	editor := widget.NewMultiLineEntry()
	editor.SetText(text)
	editor.TextStyle = fyne.TextStyle{Monospace: true}

	saved := text
	var saveBtn *widget.Button
	saveBtn = NewPrimaryButtonWithIcon("Save", nil, func() {
		content := editor.Text
		saveBtn.Disable()
		go func() {
			err := engine.FileService().WriteText(ctx, bucket, entry.Key, content)
			fyne.Do(func() {
				if err != nil {
					dialog.ShowError(err, w)
					saveBtn.Enable()
					return
				}
				saved = content
				statusBar.SetSuccess("Saved " + entry.Name())
			})
		}()
	})
	saveBtn.Disable()
	editor.OnChanged = func(s string) {
		if s != saved {
			saveBtn.Enable()
		} else {
			saveBtn.Disable()
		}
	}

	w.SetContent(container.NewBorder(
		nil,
		container.NewHBox(widget.NewLabel(entry.SizeString()+"  "+entry.ModifiedString()), HorizontalSpacer(8), saveBtn),
		nil, nil,
		editor,
	))
	w.Resize(fyne.NewSize(800, 600))
	w.Show()
}

func offerDownload(ctx context.Context, engine *core.Engine, parent fyne.Window, bucket string, entry models.Entry, reason string) {
	dialog.ShowConfirm("Download instead?", reason+"\n\nDownload it?", func(ok bool) {
		if !ok {
			return
		}
		dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				return
			}
			dest := uri.Path()
			go func() {
				if _, err := engine.Download(ctx, bucket, models.ParentPrefix(entry.Key), []models.Entry{entry}, dest); err != nil {
					guiLogger.Error().Err(err).Str("key", entry.Key).Msg("Download failed to start")
				}
			}()
		}, parent)
	}, parent)
}
