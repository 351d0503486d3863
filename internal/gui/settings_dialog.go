package gui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/objectdesk/objectdesk/internal/config"
	"github.com/objectdesk/objectdesk/internal/core"
)

// settingsForm holds the widgets of the settings dialog.
type settingsForm struct {
	backendSelect *widget.Select
	profileSelect *widget.SelectEntry
	regionEntry   *widget.Entry
	endpointEntry *widget.Entry
	pathStyle     *widget.Check
	azureEntry    *widget.Entry
	pageSizeEntry *widget.Entry

	proxyMode   *widget.Select
	proxyHost   *widget.Entry
	proxyPort   *widget.Entry
	proxyUser   *widget.Entry
	proxyPass   *widget.Entry
	proxyBypass *widget.Entry

	notifyEnabled *widget.Check
	notifyFailure *widget.Check
}

func newSettingsForm(s config.Settings) *settingsForm {
	f := &settingsForm{
		regionEntry:   widget.NewEntry(),
		endpointEntry: widget.NewEntry(),
		azureEntry:    widget.NewEntry(),
		pageSizeEntry: widget.NewEntry(),
		proxyHost:     widget.NewEntry(),
		proxyPort:     widget.NewEntry(),
		proxyUser:     widget.NewEntry(),
		proxyPass:     widget.NewPasswordEntry(),
		proxyBypass:   widget.NewEntry(),
	}

	var profiles []string
	if found, err := config.ListAWSProfiles(); err == nil {
		for _, p := range found {
			profiles = append(profiles, p.Name)
		}
	}
	f.profileSelect = widget.NewSelectEntry(profiles)
	f.profileSelect.SetText(s.Session.Profile)
	f.profileSelect.SetPlaceHolder("default")

	f.regionEntry.SetText(s.Storage.Region)
	f.regionEntry.SetPlaceHolder("us-east-1")
	f.endpointEntry.SetText(s.Storage.Endpoint)
	f.endpointEntry.SetPlaceHolder("Blank for AWS; e.g. http://localhost:9000")
	f.pathStyle = widget.NewCheck("Path-style addressing", nil)
	f.pathStyle.SetChecked(s.Storage.PathStyle)
	f.azureEntry.SetText(s.Storage.AzureAccount)
	f.pageSizeEntry.SetText(strconv.Itoa(s.Browser.PageSize))

	f.backendSelect = widget.NewSelect([]string{config.BackendS3, config.BackendAzure}, f.onBackendChange)

	f.proxyHost.SetText(s.Proxy.Host)
	if s.Proxy.Port > 0 {
		f.proxyPort.SetText(strconv.Itoa(s.Proxy.Port))
	}
	f.proxyPort.SetPlaceHolder("8080")
	f.proxyUser.SetText(s.Proxy.User)
	f.proxyPass.SetText(s.Proxy.Password)
	f.proxyBypass.SetText(s.Proxy.NoProxy)
	f.proxyBypass.SetPlaceHolder("localhost,.internal")
	f.proxyMode = widget.NewSelect([]string{config.ProxyNone, config.ProxySystem, config.ProxyBasic, config.ProxyNTLM}, f.onProxyModeChange)

	f.notifyFailure = widget.NewCheck("Also notify for each failed transfer", nil)
	f.notifyFailure.SetChecked(s.Notifications.OnFailure)
	f.notifyEnabled = widget.NewCheck("Notify when transfers finish", func(on bool) {
		if on {
			f.notifyFailure.Enable()
		} else {
			f.notifyFailure.Disable()
		}
	})
	f.notifyEnabled.SetChecked(s.Notifications.Enabled)
	if !s.Notifications.Enabled {
		f.notifyFailure.Disable()
	}

	f.backendSelect.SetSelected(s.Storage.Backend)
	f.proxyMode.SetSelected(s.Proxy.Mode)
	return f
}

func (f *settingsForm) onBackendChange(value string) {
	azure := value == config.BackendAzure
	for _, w := range []fyne.Disableable{f.regionEntry, f.endpointEntry, f.pathStyle, f.profileSelect} {
		if azure {
			w.Disable()
		} else {
			w.Enable()
		}
	}
	if azure {
		f.azureEntry.Enable()
	} else {
		f.azureEntry.Disable()
	}
}

func (f *settingsForm) onProxyModeChange(value string) {
	explicit := value == config.ProxyBasic || value == config.ProxyNTLM
	for _, w := range []fyne.Disableable{f.proxyHost, f.proxyPort, f.proxyUser, f.proxyPass, f.proxyBypass} {
		if explicit {
			w.Enable()
		} else {
			w.Disable()
		}
	}
}

// apply copies the widget values onto base and validates the result.
func (f *settingsForm) apply(base config.Settings) (*config.Settings, error) {
	s := base
	s.Storage.Backend = f.backendSelect.Selected
	s.Session.Profile = strings.TrimSpace(f.profileSelect.Text)
	s.Storage.Region = strings.TrimSpace(f.regionEntry.Text)
	s.Storage.Endpoint = strings.TrimSpace(f.endpointEntry.Text)
	s.Storage.PathStyle = f.pathStyle.Checked
	s.Storage.AzureAccount = strings.TrimSpace(f.azureEntry.Text)

	pageSize, err := strconv.Atoi(strings.TrimSpace(f.pageSizeEntry.Text))
	if err != nil {
		return nil, fmt.Errorf("page size must be a number: %w", err)
	}
	s.Browser.PageSize = pageSize

	s.Proxy.Mode = f.proxyMode.Selected
	s.Proxy.Host = strings.TrimSpace(f.proxyHost.Text)
	s.Proxy.Port = 0
	if p := strings.TrimSpace(f.proxyPort.Text); p != "" {
		if s.Proxy.Port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("proxy port must be a number: %w", err)
		}
	}
	s.Proxy.User = strings.TrimSpace(f.proxyUser.Text)
	s.Proxy.Password = f.proxyPass.Text
	s.Proxy.NoProxy = strings.TrimSpace(f.proxyBypass.Text)

	s.Notifications.Enabled = f.notifyEnabled.Checked
	s.Notifications.OnFailure = f.notifyFailure.Checked

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (f *settingsForm) build() fyne.CanvasObject {
	storage := widget.NewForm(
		widget.NewFormItem("Backend", f.backendSelect),
		widget.NewFormItem("AWS Profile", f.profileSelect),
		widget.NewFormItem("Region", f.regionEntry),
		widget.NewFormItem("Endpoint", f.endpointEntry),
		widget.NewFormItem("", f.pathStyle),
		widget.NewFormItem("Azure Account", f.azureEntry),
	)
	browsing := widget.NewForm(
		widget.NewFormItem("Page Size", f.pageSizeEntry),
	)
	proxy := widget.NewForm(
		widget.NewFormItem("Mode", f.proxyMode),
		widget.NewFormItem("Host", f.proxyHost),
		widget.NewFormItem("Port", f.proxyPort),
		widget.NewFormItem("Username", f.proxyUser),
		widget.NewFormItem("Password", f.proxyPass),
		widget.NewFormItem("Bypass", f.proxyBypass),
	)

	return container.NewVScroll(container.NewVBox(
		widget.NewCard("Storage", "", storage),
		widget.NewCard("Browsing", "", browsing),
		widget.NewCard("Proxy", "", proxy),
		widget.NewCard("Notifications", "", container.NewVBox(f.notifyEnabled, f.notifyFailure)),
	))
}

// showSettingsDialog edits the settings. Saving reconnects first and only
// writes the file when the new backend opens.
func showSettingsDialog(ctx context.Context, engine *core.Engine, window fyne.Window, onSaved func()) {
	current := engine.Settings()
	form := newSettingsForm(current)

	content := form.build()
	d := dialog.NewCustomConfirm("Settings", "Save", "Cancel", content, func(ok bool) {
		if !ok {
			return
		}
		settings, err := form.apply(current)
		if err != nil {
			dialog.ShowError(err, window)
			return
		}

		progress := dialog.NewProgressInfinite("Connecting", "Opening "+settings.Storage.Backend+" backend...", window)
		progress.Show()
		go func() {
			err := engine.UpdateSettings(ctx, settings)
			fyne.Do(func() {
				progress.Hide()
				if err != nil {
					dialog.ShowError(fmt.Errorf("settings not saved: %w", err), window)
					return
				}
				if onSaved != nil {
					onSaved()
				}
			})
		}()
	}, window)
	d.Resize(fyne.NewSize(560, 620))
	d.Show()
}
