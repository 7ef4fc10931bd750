package blobs

import (
	"context"
	"fmt"

	"github.com/hashicorp-forge/cdcs/internal/cmd/base"
	"github.com/hashicorp-forge/cdcs/pkg/cdcs"
)

type Command struct {
	*base.Command

	flagFilename  string
	flagDownload  string
	flagUpload    string
	flagWorkspace string
}

func (c *Command) Synopsis() string {
	return "List, upload or download blobs"
}

func (c *Command) Help() string {
	return `Usage: cdcs blobs [options]

  Lists blob metadata. With -download, saves the blob named by -filename
  into the given directory. With -upload, stores a local file and prints
  its download handle.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := c.Command.Flags("blobs")
	f.StringVar(&c.flagFilename, "filename", "", "Blob filename.")
	f.StringVar(&c.flagDownload, "download", "", "Directory to save the blob named by -filename into.")
	f.StringVar(&c.flagUpload, "upload", "", "Local file to upload.")
	f.StringVar(&c.flagWorkspace, "workspace", "", "Workspace title to assign an uploaded blob to.")
	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if c.flagDownload != "" && c.flagUpload != "" {
		c.UI.Error("-download and -upload cannot be combined")
		return 1
	}
	if c.flagDownload != "" && c.flagFilename == "" {
		c.UI.Error("-download requires -filename")
		return 1
	}

	ctx := context.Background()
	client, err := c.Client(ctx)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error connecting to CDCS: %v", err))
		return 1
	}

	switch {
	case c.flagUpload != "":
		up := cdcs.BlobUpload{Filename: c.flagUpload}
		if c.flagWorkspace != "" {
			up.Workspace = cdcs.ByName(c.flagWorkspace)
		}
		handle, err := client.UploadBlob(ctx, up)
		if err != nil {
			c.UI.Error(fmt.Sprintf("error uploading blob: %v", err))
			return 1
		}
		c.UI.Output(handle)

	case c.flagDownload != "":
		path, err := client.DownloadBlob(ctx, cdcs.ByName(c.flagFilename), c.flagDownload)
		if err != nil {
			c.UI.Error(fmt.Sprintf("error downloading blob: %v", err))
			return 1
		}
		c.UI.Info(fmt.Sprintf("saved %s", path))

	default:
		t, err := client.Blobs(ctx, c.flagFilename)
		if err != nil {
			c.UI.Error(fmt.Sprintf("error listing blobs: %v", err))
			return 1
		}
		if err := c.Render(t, "id", "filename", "handle"); err != nil {
			c.UI.Error(err.Error())
			return 1
		}
	}
	return 0
}
