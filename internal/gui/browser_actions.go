package gui

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/objectdesk/objectdesk/internal/models"
	ustrings "github.com/objectdesk/objectdesk/internal/util/strings"
	"github.com/objectdesk/objectdesk/internal/validation"
)

func (v *BrowserView) onUploadFile() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, v.window)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()
		v.upload([]string{path})
	}, v.window)
}

func (v *BrowserView) onUploadFolder() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, v.window)
			return
		}
		if uri == nil {
			return
		}
		v.upload([]string{uri.Path()})
	}, v.window)
}

// onDropped uploads files dragged onto the window into the current location.
func (v *BrowserView) onDropped(_ fyne.Position, uris []fyne.URI) {
	var paths []string
	for _, u := range uris {
		if u.Scheme() == "file" {
			paths = append(paths, u.Path())
		}
	}
	if len(paths) > 0 {
		v.upload(paths)
	}
}

func (v *BrowserView) upload(localPaths []string) {
	bucket, prefix := v.ctrl.Location()
	if bucket == "" {
		v.statusBar.SetWarning("Open a bucket before uploading")
		return
	}
	v.statusBar.SetProgress("Preparing upload...")
	go func() {
		n, err := v.engine.Upload(v.ctx, bucket, prefix, localPaths)
		if err != nil {
			guiLogger.Error().Err(err).Msg("Upload failed to start")
			v.statusBar.SetError("Upload failed: " + err.Error())
			return
		}
		v.statusBar.SetProgress("Uploading " + ustrings.CountNoun(int64(n), "file") + "...")
	}()
}

func (v *BrowserView) onDownload() {
	entries := v.ctrl.SelectedEntries()
	if len(entries) == 0 {
		v.statusBar.SetWarning("Select files or folders to download")
		return
	}
	bucket, prefix := v.ctrl.Location()

	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, v.window)
			return
		}
		if uri == nil {
			return
		}
		dest := uri.Path()
		v.statusBar.SetProgress("Preparing download...")
		go func() {
			n, err := v.engine.Download(v.ctx, bucket, prefix, entries, dest)
			if err != nil {
				guiLogger.Error().Err(err).Msg("Download failed to start")
				v.statusBar.SetError("Download failed: " + err.Error())
				return
			}
			v.statusBar.SetProgress(fmt.Sprintf("Downloading %d %s to %s...", n, ustrings.Pluralize("file", int64(n)), dest))
		}()
	}, v.window)
}

func (v *BrowserView) onNewFolder() {
	bucket, prefix := v.ctrl.Location()
	if bucket == "" {
		return
	}
	name := widget.NewEntry()
	name.Validator = validateName

	dialog.ShowForm("New Folder", "Create", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Name", name)},
		func(ok bool) {
			if !ok {
				return
			}
			go func() {
				key, err := v.engine.FileService().CreateFolder(v.ctx, bucket, prefix, strings.TrimSpace(name.Text))
				if err != nil {
					v.showError("Could not create folder", err)
					return
				}
				v.statusBar.SetSuccess("Created " + models.BaseName(key))
				v.reloadAndSelect(key)
			}()
		}, v.window)
}

func (v *BrowserView) onRename() {
	entries := v.ctrl.SelectedEntries()
	if len(entries) != 1 {
		v.statusBar.SetWarning("Select exactly one item to rename")
		return
	}
	entry := entries[0]
	bucket, _ := v.ctrl.Location()

	name := widget.NewEntry()
	name.SetText(entry.Name())
	name.Validator = validateName

	dialog.ShowForm("Rename "+entry.Name(), "Rename", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("New name", name)},
		func(ok bool) {
			if !ok || name.Text == entry.Name() {
				return
			}
			v.statusBar.SetProgress("Renaming " + entry.Name() + "...")
			go func() {
				key, err := v.engine.FileService().Rename(v.ctx, bucket, entry, strings.TrimSpace(name.Text))
				if err != nil {
					v.showError("Could not rename "+entry.Name(), err)
					return
				}
				v.statusBar.SetSuccess("Renamed to " + models.BaseName(key))
				v.reloadAndSelect(key)
			}()
		}, v.window)
}

func (v *BrowserView) onDelete() {
	entries := v.ctrl.SelectedEntries()
	if len(entries) == 0 {
		return
	}
	bucket, _ := v.ctrl.Location()

	msg := fmt.Sprintf("Delete %s?", entries[0].Name())
	if len(entries) > 1 {
		msg = fmt.Sprintf("Delete %d items?", len(entries))
	}
	for _, e := range entries {
		if e.IsPrefix {
			msg += "\n\nFolders are deleted with everything inside them."
			break
		}
	}

	dialog.ShowConfirm("Confirm Delete", msg, func(ok bool) {
		if !ok {
			return
		}
		v.statusBar.SetProgress("Deleting...")
		go func() {
			result, err := v.engine.FileService().Delete(v.ctx, bucket, entries)
			if err == nil {
				err = result.Err()
			}
			if err != nil {
				v.showError("Delete incomplete", err)
			} else {
				v.statusBar.SetSuccess("Deleted " + ustrings.CountNoun(int64(result.Deleted), "object"))
			}
			v.ctrl.Refresh()
		}()
	}, v.window)
}

func (v *BrowserView) onCopyURL() {
	entries := v.ctrl.SelectedEntries()
	bucket, prefix := v.ctrl.Location()
	if bucket == "" {
		return
	}

	var urls []string
	if len(entries) == 0 {
		urls = append(urls, models.ObjectURL{Bucket: bucket, Key: prefix}.String())
	}
	for _, e := range entries {
		urls = append(urls, models.ObjectURL{Bucket: bucket, Key: e.Key}.String())
	}
	fyne.CurrentApp().Clipboard().SetContent(strings.Join(urls, "\n"))
	v.statusBar.SetSuccess("Copied " + ustrings.CountNoun(int64(len(urls)), "URL"))
}

// reloadAndSelect refreshes the location and selects key once it shows up.
func (v *BrowserView) reloadAndSelect(key string) {
	v.ctrl.Refresh()
	v.ctrl.RequestSelection(key, nil)
}

func (v *BrowserView) showError(title string, err error) {
	guiLogger.Warn().Err(err).Msg(title)
	v.statusBar.SetError(title + ": " + err.Error())
	fyne.Do(func() {
		dialog.ShowError(fmt.Errorf("%s: %w", title, err), v.window)
	})
}

func validateName(s string) error {
	return validation.ValidateObjectName(strings.TrimSpace(s))
}
