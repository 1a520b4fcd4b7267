package app

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/soocke/planetrack-go/capture"
)

// TemplateInfo ties a template file to the tracker ids registered for it.
type TemplateInfo struct {
	Name string
	Path string
	IDs  []int
}

// RegisterTemplate adds img to the tracker, as several views when
// template_views is set. path is informational and may be empty.
func (c *Container) RegisterTemplate(name, path string, img image.Image) (TemplateInfo, error) {
	info := TemplateInfo{Name: name, Path: path}
	if img == nil {
		return info, fmt.Errorf("register %s: nil image", name)
	}
	if c.Config.TemplateViews {
		ids, err := c.Tracker.AddTemplateViews(img)
		if err != nil {
			return info, fmt.Errorf("register %s: %w", name, err)
		}
		info.IDs = ids
	} else {
		id, _, err := c.Tracker.AddTarget(img, img.Bounds())
		if err != nil {
			return info, fmt.Errorf("register %s: %w", name, err)
		}
		if id >= 0 {
			info.IDs = []int{id}
		}
	}
	c.Templates = append(c.Templates, info)
	c.Logger.Info("template loaded", "name", name, "ids", info.IDs)
	return info, nil
}

// RegisterRegion adds the rect region of img as a single template.
func (c *Container) RegisterRegion(name, path string, img image.Image, rect image.Rectangle) (TemplateInfo, error) {
	info := TemplateInfo{Name: name, Path: path}
	if img == nil {
		return info, fmt.Errorf("register %s: nil image", name)
	}
	id, _, err := c.Tracker.AddTarget(img, rect)
	if err != nil {
		return info, fmt.Errorf("register %s: %w", name, err)
	}
	if id < 0 {
		return info, fmt.Errorf("register %s: region %v outside image %v", name, rect, img.Bounds())
	}
	info.IDs = []int{id}
	c.Templates = append(c.Templates, info)
	c.Logger.Info("template loaded", "name", name, "rect", rect, "ids", info.IDs)
	return info, nil
}

// LoadTemplates registers every image in dir. Unreadable files are logged
// and skipped; an empty directory is an error.
func (c *Container) LoadTemplates(dir string) error {
	paths, err := capture.ListImages(dir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		img, err := capture.LoadImage(p)
		if err != nil {
			c.Logger.Error("template load", "path", p, "error", err)
			continue
		}
		if _, err := c.RegisterTemplate(filepath.Base(p), p, img); err != nil {
			c.Logger.Error("template register", "path", p, "error", err)
		}
	}
	if c.Tracker.Len() == 0 {
		return fmt.Errorf("no usable templates in %s", dir)
	}
	return nil
}

// ClearTemplates forgets every template and the tracking history.
func (c *Container) ClearTemplates() {
	c.Tracker.Clear()
	c.Templates = nil
}
