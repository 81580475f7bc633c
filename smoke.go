package ubox

import (
	"bytes"
	"context"
)

const SmokeTestFolderName = "test_folder"

type SmokeReport struct {
	RootEntries   int    `json:"root_entries"`
	FolderId      string `json:"folder_id"`
	FileId        string `json:"file_id"`
	UploadedBytes int    `json:"uploaded_bytes"`
	Downloaded    int    `json:"downloaded_bytes"`
}

// SmokeTest walks every APIClient operation against the root folder: list,
// create and remove a folder, then upload, download and delete a file. It
// stops at the first failure and leaves whatever was created behind.
func SmokeTest(ctx context.Context, api *APIClient, fileName string, content []byte) (*SmokeReport, error) {
	const root = "0"

	report := &SmokeReport{UploadedBytes: len(content)}

	entries, err := api.ListFolder(ctx, root)
	if err != nil {
		return report, err
	}
	report.RootEntries = len(entries)

	folderId, err := api.CreateFolder(ctx, root, SmokeTestFolderName)
	if err != nil {
		return report, err
	}
	report.FolderId = folderId

	if err := api.RemoveFolder(ctx, folderId); err != nil {
		return report, err
	}

	fileId, err := api.UploadFile(ctx, root, fileName, bytes.NewReader(content))
	if err != nil {
		return report, err
	}
	report.FileId = fileId

	downloaded, err := api.DownloadFile(ctx, fileId)
	if err != nil {
		return report, err
	}
	report.Downloaded = len(downloaded)

	if err := api.DeleteFile(ctx, fileId); err != nil {
		return report, err
	}

	return report, nil
}
